package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. Amounts are
// stored as NUMERIC(78,0) and travel as decimal strings so 18-fraction-digit
// fixed-point values never hit floating point.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `id, owner, collateral::text, debt::text, status, opened_at, closed_at`

func scanPositionRow(row pgx.Row) (domain.Position, error) {
	var (
		p                      domain.Position
		collateralStr, debtStr string
		status                 string
	)
	err := row.Scan(&p.ID, &p.Owner, &collateralStr, &debtStr, &status, &p.OpenedAt, &p.ClosedAt)
	if err != nil {
		return domain.Position{}, err
	}
	var ok bool
	if p.Collateral, ok = new(big.Int).SetString(collateralStr, 10); !ok {
		return domain.Position{}, fmt.Errorf("postgres: bad collateral %q", collateralStr)
	}
	if p.Debt, ok = new(big.Int).SetString(debtStr, 10); !ok {
		return domain.Position{}, fmt.Errorf("postgres: bad debt %q", debtStr)
	}
	p.Status = domain.PositionStatus(status)
	return p, nil
}

func scanPositionRows(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPositionRow(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Create inserts a new position and returns its sequence-allocated ID.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) (uint64, error) {
	const query = `
		INSERT INTO positions (owner, collateral, debt, status, opened_at, closed_at, updated_at)
		VALUES ($1, $2::numeric, $3::numeric, $4, $5, $6, NOW())
		RETURNING id`

	var id uint64
	err := s.pool.QueryRow(ctx, query,
		p.Owner, p.Collateral.String(), p.Debt.String(),
		string(p.Status), p.OpenedAt, p.ClosedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("postgres: create position: %w", err)
	}
	return id, nil
}

// Update replaces all mutable fields of a position.
func (s *PositionStore) Update(ctx context.Context, p domain.Position) error {
	const query = `
		UPDATE positions SET
			collateral = $2::numeric,
			debt       = $3::numeric,
			status     = $4,
			closed_at  = $5,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Collateral.String(), p.Debt.String(),
		string(p.Status), p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID retrieves a single position by its ID.
func (s *PositionStore) GetByID(ctx context.Context, id uint64) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+` FROM positions WHERE id = $1`, id)

	p, err := scanPositionRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %d: %w", id, err)
	}
	return p, nil
}

// ListOpen returns all open positions in ID order.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+` FROM positions
		 WHERE status = 'open'
		 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan open positions: %w", err)
	}
	return positions, nil
}

// ListSettled returns closed positions with pagination and optional time
// filtering on closed_at.
func (s *PositionStore) ListSettled(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + ` FROM positions WHERE status = 'closed'`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND closed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND closed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled positions: %w", err)
	}
	defer rows.Close()

	positions, err := scanPositionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan settled positions: %w", err)
	}
	return positions, nil
}

// Count returns the total number of positions ever created.
func (s *PositionStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count positions: %w", err)
	}
	return n, nil
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
