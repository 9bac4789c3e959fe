package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// LiquidationStore implements domain.LiquidationStore using PostgreSQL.
type LiquidationStore struct {
	pool *pgxpool.Pool
}

// NewLiquidationStore creates a new LiquidationStore backed by the given pool.
func NewLiquidationStore(pool *pgxpool.Pool) *LiquidationStore {
	return &LiquidationStore{pool: pool}
}

const attemptSelectCols = `id, position_id, status, COALESCE(tx_hash, ''), COALESCE(error, ''), created_at`

func scanAttemptRows(rows pgx.Rows) ([]domain.LiquidationAttempt, error) {
	var attempts []domain.LiquidationAttempt
	for rows.Next() {
		var (
			att    domain.LiquidationAttempt
			status string
		)
		if err := rows.Scan(&att.ID, &att.PositionID, &status, &att.TxHash, &att.Error, &att.CreatedAt); err != nil {
			return nil, err
		}
		att.Status = domain.SubmissionStatus(status)
		attempts = append(attempts, att)
	}
	return attempts, rows.Err()
}

// Insert records a keeper liquidation attempt.
func (s *LiquidationStore) Insert(ctx context.Context, att domain.LiquidationAttempt) error {
	const query = `
		INSERT INTO liquidation_attempts (id, position_id, status, tx_hash, error, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)`

	_, err := s.pool.Exec(ctx, query,
		att.ID, att.PositionID, string(att.Status), att.TxHash, att.Error, att.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert liquidation attempt %s: %w", att.ID, err)
	}
	return nil
}

// ListRecent returns the most recent attempts, newest first.
func (s *LiquidationStore) ListRecent(ctx context.Context, limit int) ([]domain.LiquidationAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptSelectCols+` FROM liquidation_attempts
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent attempts: %w", err)
	}
	defer rows.Close()

	attempts, err := scanAttemptRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent attempts: %w", err)
	}
	return attempts, nil
}

// ListBefore returns attempts created strictly before cutoff, oldest first.
func (s *LiquidationStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.LiquidationAttempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+attemptSelectCols+` FROM liquidation_attempts
		 WHERE created_at < $1
		 ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attempts before %s: %w", cutoff, err)
	}
	defer rows.Close()

	attempts, err := scanAttemptRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan attempts before cutoff: %w", err)
	}
	return attempts, nil
}

// Compile-time interface check.
var _ domain.LiquidationStore = (*LiquidationStore)(nil)
