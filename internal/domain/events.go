package domain

import "time"

// EventsChannel is the signal bus channel ledger lifecycle events are
// published on.
const EventsChannel = "vault:events"

// EventType identifies a ledger lifecycle event.
type EventType string

const (
	EventPositionOpened     EventType = "position_opened"
	EventPositionClosed     EventType = "position_closed"
	EventPositionLiquidated EventType = "position_liquidated"
	EventLiquidationFailed  EventType = "liquidation_failed"
)

// LedgerEvent is the wire form of a ledger lifecycle event. Amounts are
// decimal strings at 18 fractional digits so consumers never lose precision
// to JSON number parsing.
type LedgerEvent struct {
	Type       EventType `json:"type"`
	PositionID uint64    `json:"position_id"`
	Owner      string    `json:"owner,omitempty"`
	Collateral string    `json:"collateral,omitempty"`
	Debt       string    `json:"debt,omitempty"`
	TxHash     string    `json:"tx_hash,omitempty"`
	At         time.Time `json:"at"`
}

// EventSink receives ledger events. Implementations must not block the
// caller; slow consumers drop or buffer on their side.
type EventSink interface {
	Emit(event LedgerEvent)
}
