// Package memory implements the domain store interfaces with in-process maps.
// It backs the demo mode and tests; durable deployments use the postgres
// package instead.
package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// PositionStore keeps positions in a growable indexed arena keyed by
// sequential ID starting at 1.
type PositionStore struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]domain.Position
}

// NewPositionStore creates an empty PositionStore.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		nextID: 1,
		byID:   make(map[uint64]domain.Position),
	}
}

func clone(p domain.Position) domain.Position {
	out := p
	if p.Collateral != nil {
		out.Collateral = new(big.Int).Set(p.Collateral)
	}
	if p.Debt != nil {
		out.Debt = new(big.Int).Set(p.Debt)
	}
	if p.ClosedAt != nil {
		t := *p.ClosedAt
		out.ClosedAt = &t
	}
	return out
}

// Create stores pos under the next sequential ID and returns that ID.
func (s *PositionStore) Create(_ context.Context, pos domain.Position) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	pos.ID = id
	s.byID[id] = clone(pos)
	return id, nil
}

// Update replaces the stored record for pos.ID.
func (s *PositionStore) Update(_ context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[pos.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[pos.ID] = clone(pos)
	return nil
}

// GetByID returns the position with the given ID.
func (s *PositionStore) GetByID(_ context.Context, id uint64) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.byID[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return clone(pos), nil
}

func (s *PositionStore) list(filter func(domain.Position) bool) []domain.Position {
	out := make([]domain.Position, 0, len(s.byID))
	for _, pos := range s.byID {
		if filter(pos) {
			out = append(out, clone(pos))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListOpen returns all open positions in ID order.
func (s *PositionStore) ListOpen(_ context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(func(p domain.Position) bool { return p.IsOpen() }), nil
}

// ListSettled returns closed positions in ID order, honoring pagination and
// time bounds on ClosedAt.
func (s *PositionStore) ListSettled(_ context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settled := s.list(func(p domain.Position) bool {
		if p.IsOpen() {
			return false
		}
		if opts.Since != nil && (p.ClosedAt == nil || p.ClosedAt.Before(*opts.Since)) {
			return false
		}
		if opts.Until != nil && (p.ClosedAt == nil || p.ClosedAt.After(*opts.Until)) {
			return false
		}
		return true
	})
	if opts.Offset > 0 {
		if opts.Offset >= len(settled) {
			return nil, nil
		}
		settled = settled[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(settled) {
		settled = settled[:opts.Limit]
	}
	return settled, nil
}

// Count returns the total number of positions ever created.
func (s *PositionStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.byID)), nil
}

// LiquidationStore keeps liquidation attempts in memory.
type LiquidationStore struct {
	mu       sync.Mutex
	attempts []domain.LiquidationAttempt
}

// NewLiquidationStore creates an empty LiquidationStore.
func NewLiquidationStore() *LiquidationStore {
	return &LiquidationStore{}
}

// Insert appends an attempt record.
func (s *LiquidationStore) Insert(_ context.Context, att domain.LiquidationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, att)
	return nil
}

// ListRecent returns the most recent attempts, newest first.
func (s *LiquidationStore) ListRecent(_ context.Context, limit int) ([]domain.LiquidationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.attempts)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.LiquidationAttempt, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.attempts[i])
	}
	return out, nil
}

// ListBefore returns attempts created strictly before cutoff.
func (s *LiquidationStore) ListBefore(_ context.Context, cutoff time.Time) ([]domain.LiquidationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LiquidationAttempt
	for _, att := range s.attempts {
		if att.CreatedAt.Before(cutoff) {
			out = append(out, att)
		}
	}
	return out, nil
}

// Compile-time interface checks.
var (
	_ domain.PositionStore    = (*PositionStore)(nil)
	_ domain.LiquidationStore = (*LiquidationStore)(nil)
)
