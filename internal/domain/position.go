package domain

import (
	"math/big"
	"time"
)

// PositionStatus tracks whether a position is open or closed. Closed is
// terminal; positions are never re-opened.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position is a single collateral-deposit / debt-issuance record owned by one
// identity. Collateral and Debt are fixed-point amounts with 18 fractional
// digits. IDs are sequential, starting at 1.
type Position struct {
	ID         uint64
	Owner      string
	Collateral *big.Int
	Debt       *big.Int
	Status     PositionStatus
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// IsOpen reports whether the position is still in the open state.
func (p Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}
