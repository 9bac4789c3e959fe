package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// PositionStore persists positions. Create allocates the next sequential ID
// (starting at 1) and returns it. Implementations serialize writes so that two
// transitions against the same ID cannot interleave.
type PositionStore interface {
	Create(ctx context.Context, pos Position) (uint64, error)
	Update(ctx context.Context, pos Position) error
	GetByID(ctx context.Context, id uint64) (Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	ListSettled(ctx context.Context, opts ListOpts) ([]Position, error)
	Count(ctx context.Context) (int64, error)
}

// LiquidationStore records the outcome of every keeper liquidation attempt.
// Audit-only: keeper correctness never depends on these rows.
type LiquidationStore interface {
	Insert(ctx context.Context, att LiquidationAttempt) error
	ListRecent(ctx context.Context, limit int) ([]LiquidationAttempt, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]LiquidationAttempt, error)
}

// LockManager provides distributed mutual exclusion, used to guarantee that at
// most one keeper replica acts on a given tick.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// SignalBus publishes ledger lifecycle events for external consumers
// (dashboards, alerting).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
