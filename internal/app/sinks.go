package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/notify"
)

// sinkTimeout bounds the background delivery of a single ledger event.
const sinkTimeout = 5 * time.Second

// multiSink fans a ledger event out to several sinks in order.
type multiSink struct {
	sinks []domain.EventSink
}

// newMultiSink composes the non-nil sinks into one. Returns nil when no sink
// remains, a lone sink unwrapped.
func newMultiSink(sinks ...domain.EventSink) domain.EventSink {
	kept := make([]domain.EventSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return &multiSink{sinks: kept}
	}
}

func (m *multiSink) Emit(ev domain.LedgerEvent) {
	for _, s := range m.sinks {
		s.Emit(ev)
	}
}

// busSink publishes ledger events on the shared signal bus so consumers in
// other processes (dashboards, a remote event hub) can observe them.
type busSink struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

// Emit publishes the event in the background; the ledger never blocks on the
// bus, and publish failures are logged and dropped.
func (b *busSink) Emit(ev domain.LedgerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := b.bus.Publish(ctx, domain.EventsChannel, data); err != nil {
			b.logger.Warn("event publish failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// notifySink forwards ledger events to the operator notifier, which applies
// its own event-type filter.
type notifySink struct {
	notifier *notify.Notifier
	logger   *slog.Logger
}

func (n *notifySink) Emit(ev domain.LedgerEvent) {
	title, message := describeEvent(ev)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := n.notifier.Notify(ctx, string(ev.Type), title, message); err != nil {
			n.logger.Warn("event notification failed",
				slog.String("type", string(ev.Type)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// describeEvent renders a ledger event as an operator-facing alert.
func describeEvent(ev domain.LedgerEvent) (title, message string) {
	switch ev.Type {
	case domain.EventPositionOpened:
		return "Position opened",
			fmt.Sprintf("position %d opened by %s (collateral %s, debt %s)", ev.PositionID, ev.Owner, ev.Collateral, ev.Debt)
	case domain.EventPositionClosed:
		return "Position closed",
			fmt.Sprintf("position %d closed by %s (payout %s)", ev.PositionID, ev.Owner, ev.Collateral)
	case domain.EventPositionLiquidated:
		return "Position liquidated",
			fmt.Sprintf("position %d owned by %s liquidated (debt burned %s, collateral %s held for withdrawal)", ev.PositionID, ev.Owner, ev.Debt, ev.Collateral)
	case domain.EventLiquidationFailed:
		return "Liquidation failed",
			fmt.Sprintf("position %d: liquidation attempt failed", ev.PositionID)
	default:
		return string(ev.Type), fmt.Sprintf("position %d", ev.PositionID)
	}
}

// Compile-time interface checks.
var (
	_ domain.EventSink = (*multiSink)(nil)
	_ domain.EventSink = (*busSink)(nil)
	_ domain.EventSink = (*notifySink)(nil)
)
