// Package keeper implements the off-chain liquidation monitor: an
// interval-scheduled, stateless read-decide-act loop that scans a configured
// set of position IDs and submits a liquidation for each unhealthy one.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/notify"
)

// tickLockKey is the distributed lock key guarding each tick when a lock
// manager is configured.
const tickLockKey = "keeper:tick"

// Config holds the monitor's parameters.
type Config struct {
	// WatchIDs is the set of position IDs scanned each tick, ascending.
	WatchIDs []uint64
	// Interval is the tick period.
	Interval time.Duration
	// LockTTL bounds how long a replica may hold the tick lock. Defaults to
	// Interval when zero.
	LockTTL time.Duration
}

// Monitor runs the read-decide-act loop. It holds no state between ticks:
// every tick is an independent cycle, and retry is emergent from the next
// tick re-observing still-unhealthy state.
type Monitor struct {
	reader    domain.SolvencyReader
	submitter domain.ActionSubmitter
	attempts  domain.LiquidationStore // optional audit trail
	locks     domain.LockManager      // optional replica exclusion
	notifier  *notify.Notifier        // optional
	watch     []uint64
	interval  time.Duration
	lockTTL   time.Duration
	logger    *slog.Logger
}

// New creates a Monitor. attempts, locks, and notifier may be nil.
func New(
	cfg Config,
	reader domain.SolvencyReader,
	submitter domain.ActionSubmitter,
	attempts domain.LiquidationStore,
	locks domain.LockManager,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *Monitor {
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = cfg.Interval
	}
	return &Monitor{
		reader:    reader,
		submitter: submitter,
		attempts:  attempts,
		locks:     locks,
		notifier:  notifier,
		watch:     cfg.WatchIDs,
		interval:  cfg.Interval,
		lockTTL:   lockTTL,
		logger:    logger.With(slog.String("component", "keeper")),
	}
}

// Run ticks once immediately and then on every interval until the context is
// cancelled. A tick runs to completion, including the blocking wait for
// submission settlement, before the next one fires; tick failures are logged
// and never propagate.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "liquidation monitor starting",
		slog.Duration("interval", m.interval),
		slog.Int("watched", len(m.watch)),
	)

	m.Tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("liquidation monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick runs one read-decide-act cycle over the watch set and reports whether
// any liquidation was submitted and confirmed. Healthy positions and read
// failures produce no action; there is no retry within the tick.
func (m *Monitor) Tick(ctx context.Context) bool {
	if m.locks != nil {
		unlock, err := m.locks.Acquire(ctx, tickLockKey, m.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				m.logger.DebugContext(ctx, "tick lock held by another replica")
			} else {
				m.logger.WarnContext(ctx, "tick lock unavailable",
					slog.String("error", err.Error()),
				)
			}
			return false
		}
		defer unlock()
	}

	acted := false
	for _, id := range m.watch {
		needs, err := m.reader.NeedsLiquidation(ctx, id)
		if err != nil {
			m.logger.ErrorContext(ctx, "solvency read failed",
				slog.Uint64("position_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !needs {
			m.logger.DebugContext(ctx, "position healthy, no action",
				slog.Uint64("position_id", id),
			)
			continue
		}
		if m.liquidate(ctx, id) {
			acted = true
		}
	}
	return acted
}

// liquidate submits exactly one liquidation call for id, records the attempt,
// and reports whether it was confirmed.
func (m *Monitor) liquidate(ctx context.Context, id uint64) bool {
	attemptID := uuid.New().String()
	m.logger.InfoContext(ctx, "submitting liquidation",
		slog.Uint64("position_id", id),
		slog.String("attempt_id", attemptID),
	)

	sub, err := m.submitter.SubmitLiquidation(ctx, id)
	if err != nil {
		sub = domain.Submission{
			Status:       domain.SubmissionFailure,
			ErrorMessage: err.Error(),
		}
	}

	if m.attempts != nil {
		att := domain.LiquidationAttempt{
			ID:         attemptID,
			PositionID: id,
			Status:     sub.Status,
			TxHash:     sub.TxHash,
			Error:      sub.ErrorMessage,
			CreatedAt:  time.Now().UTC(),
		}
		if err := m.attempts.Insert(ctx, att); err != nil {
			m.logger.WarnContext(ctx, "could not record liquidation attempt",
				slog.String("attempt_id", attemptID),
				slog.String("error", err.Error()),
			)
		}
	}

	if sub.Status != domain.SubmissionSuccess {
		m.logger.ErrorContext(ctx, "liquidation failed",
			slog.Uint64("position_id", id),
			slog.String("attempt_id", attemptID),
			slog.String("error", sub.ErrorMessage),
		)
		m.notify(ctx, string(domain.EventLiquidationFailed),
			"Liquidation failed",
			fmt.Sprintf("position %d: %s", id, sub.ErrorMessage),
		)
		return false
	}

	m.logger.InfoContext(ctx, "liquidation confirmed",
		slog.Uint64("position_id", id),
		slog.String("attempt_id", attemptID),
		slog.String("tx_hash", sub.TxHash),
	)
	m.notify(ctx, string(domain.EventPositionLiquidated),
		"Position liquidated",
		fmt.Sprintf("position %d liquidated (tx %s)", id, sub.TxHash),
	)
	return true
}

func (m *Monitor) notify(ctx context.Context, event, title, message string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, event, title, message); err != nil {
		m.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
