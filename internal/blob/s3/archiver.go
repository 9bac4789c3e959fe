package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// SettledArchiveStore reads settled positions for archival.
type SettledArchiveStore interface {
	ListSettled(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error)
}

// AttemptArchiveStore reads old liquidation attempts for archival.
type AttemptArchiveStore interface {
	ListBefore(ctx context.Context, cutoff time.Time) ([]domain.LiquidationAttempt, error)
}

// Archiver snapshots settled positions and liquidation attempts to cold
// storage as JSONL, partitioned by the year-month of the cutoff.
//
// Archiving never deletes rows from the primary store; pruning is a separate
// operator step taken after the archive is verified.
type Archiver struct {
	writer    domain.BlobWriter
	positions SettledArchiveStore
	attempts  AttemptArchiveStore // may be nil
	logger    *slog.Logger
}

// NewArchiver creates an Archiver. attempts may be nil when no liquidation
// store is wired.
func NewArchiver(writer domain.BlobWriter, positions SettledArchiveStore, attempts AttemptArchiveStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		positions: positions,
		attempts:  attempts,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// positionRecord is the archived form of a settled position.
type positionRecord struct {
	ID         uint64     `json:"id"`
	Owner      string     `json:"owner"`
	Collateral string     `json:"collateral"`
	Debt       string     `json:"debt"`
	Status     string     `json:"status"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

// ArchiveSettled uploads all positions settled strictly before the cutoff to
// archive/positions/YYYY-MM.jsonl and returns the record count.
func (a *Archiver) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	positions, err := a.positions.ListSettled(ctx, domain.ListOpts{Until: &before})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settled query: %w", err)
	}
	if len(positions) == 0 {
		return 0, nil
	}

	records := make([]positionRecord, 0, len(positions))
	for _, pos := range positions {
		records = append(records, positionRecord{
			ID:         pos.ID,
			Owner:      pos.Owner,
			Collateral: pos.Collateral.String(),
			Debt:       pos.Debt.String(),
			Status:     string(pos.Status),
			OpenedAt:   pos.OpenedAt,
			ClosedAt:   pos.ClosedAt,
		})
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settled marshal: %w", err)
	}

	path := archivePath("positions", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive settled upload: %w", err)
	}

	a.logger.InfoContext(ctx, "settled positions archived",
		slog.String("path", path),
		slog.Int("count", len(records)),
	)
	return int64(len(records)), nil
}

// ArchiveAttempts uploads liquidation attempts recorded strictly before the
// cutoff to archive/liquidations/YYYY-MM.jsonl and returns the record count.
func (a *Archiver) ArchiveAttempts(ctx context.Context, before time.Time) (int64, error) {
	if a.attempts == nil {
		return 0, nil
	}
	attempts, err := a.attempts.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts query: %w", err)
	}
	if len(attempts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(attempts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts marshal: %w", err)
	}

	path := archivePath("liquidations", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive attempts upload: %w", err)
	}

	a.logger.InfoContext(ctx, "liquidation attempts archived",
		slog.String("path", path),
		slog.Int("count", len(attempts)),
	)
	return int64(len(attempts)), nil
}

// Run archives on the given interval until ctx is cancelled, each pass using
// now minus retention as the cutoff. Failures are logged and the loop keeps
// going.
func (a *Archiver) Run(ctx context.Context, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-retention)
			if _, err := a.ArchiveSettled(ctx, cutoff); err != nil {
				a.logger.ErrorContext(ctx, "settled archive pass failed",
					slog.String("error", err.Error()),
				)
			}
			if _, err := a.ArchiveAttempts(ctx, cutoff); err != nil {
				a.logger.ErrorContext(ctx, "attempt archive pass failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
