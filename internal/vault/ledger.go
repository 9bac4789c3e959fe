package vault

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// CustodyAccount is the identity under which the ledger holds locked
// collateral in the collateral book.
const CustodyAccount = "vault"

// Ledger owns position records and the four state transitions: open, close,
// liquidate, withdraw. Every operation runs under a single mutex so each
// transition is all-or-nothing with respect to its own mutations; concurrent
// calls against the same ID serialize, and the loser of a liquidation race
// observes ErrPositionNotOpen.
//
// Ordering discipline: any operation that both mutates position state and
// pays out collateral commits the state mutation before the transfer.
type Ledger struct {
	mu sync.Mutex

	store      domain.PositionStore
	liability  domain.TokenBook
	collateral domain.TokenBook
	price      domain.PriceSource
	minHF      *big.Int

	sink   domain.EventSink
	logger *slog.Logger
}

// Config carries the ledger's collaborators and parameters.
type Config struct {
	Store      domain.PositionStore
	Liability  domain.TokenBook
	Collateral domain.TokenBook
	Price      domain.PriceSource
	// MinHealthFactor is the minimum solvency ratio, scaled by 10^18
	// (1.2 * 10^18 means 120%).
	MinHealthFactor *big.Int
	// Sink receives lifecycle events. Optional.
	Sink domain.EventSink
}

// NewLedger creates a Ledger from the given collaborators.
func NewLedger(cfg Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:      cfg.Store,
		liability:  cfg.Liability,
		collateral: cfg.Collateral,
		price:      cfg.Price,
		minHF:      new(big.Int).Set(cfg.MinHealthFactor),
		sink:       cfg.Sink,
		logger:     logger.With(slog.String("component", "ledger")),
	}
}

// MinHealthFactor returns the configured minimum health factor (10^18 scale).
func (l *Ledger) MinHealthFactor() *big.Int {
	return new(big.Int).Set(l.minHF)
}

// OpenPosition locks deposit collateral and mints mintUsd liability units
// (human scale) to owner. The prospective health factor must be at least the
// minimum. Returns the new position's ID.
func (l *Ledger) OpenPosition(ctx context.Context, owner string, deposit *big.Int, mintUsd uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if deposit == nil || deposit.Sign() <= 0 {
		return 0, domain.ErrNoCollateral
	}
	if mintUsd == 0 {
		return 0, domain.ErrNoMintAmount
	}

	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledger: open: %w", err)
	}

	debt := new(big.Int).Mul(new(big.Int).SetUint64(mintUsd), Wad)
	hf, err := healthFactor(deposit, debt, quote)
	if err != nil {
		return 0, fmt.Errorf("ledger: open: %w", err)
	}
	if hf.Cmp(l.minHF) < 0 {
		return 0, domain.ErrInsufficientCollateral
	}

	// Pull the deposit into vault custody before the record exists; refund
	// if the record cannot be created.
	if err := l.collateral.Transfer(ctx, owner, CustodyAccount, deposit); err != nil {
		return 0, fmt.Errorf("ledger: open: deposit: %w", err)
	}

	pos := domain.Position{
		Owner:      owner,
		Collateral: new(big.Int).Set(deposit),
		Debt:       debt,
		Status:     domain.PositionStatusOpen,
		OpenedAt:   time.Now().UTC(),
	}
	id, err := l.store.Create(ctx, pos)
	if err != nil {
		_ = l.collateral.Transfer(ctx, CustodyAccount, owner, deposit)
		return 0, fmt.Errorf("ledger: open: store: %w", err)
	}

	if err := l.liability.Mint(ctx, owner, debt); err != nil {
		return 0, fmt.Errorf("ledger: open: mint: %w", err)
	}

	l.logger.InfoContext(ctx, "position opened",
		slog.Uint64("id", id),
		slog.String("owner", owner),
		slog.String("collateral", deposit.String()),
		slog.String("debt", debt.String()),
	)
	l.emit(domain.LedgerEvent{
		Type:       domain.EventPositionOpened,
		PositionID: id,
		Owner:      owner,
		Collateral: deposit.String(),
		Debt:       debt.String(),
		At:         time.Now().UTC(),
	})
	return id, nil
}

// ClosePosition settles a solvent position: the owner surrenders liability
// tokens equal to the debt and receives the locked collateral back. Only the
// owner may close, and only while the position is healthy.
func (l *Ledger) ClosePosition(ctx context.Context, caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: close %d: %w", id, err)
	}
	if !pos.IsOpen() {
		return domain.ErrPositionNotOpen
	}
	if pos.Owner != caller {
		return domain.ErrNotOwner
	}

	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return fmt.Errorf("ledger: close %d: %w", id, err)
	}
	hf, err := HealthFactor(pos, quote)
	if err != nil {
		return fmt.Errorf("ledger: close %d: %w", id, err)
	}
	if hf.Cmp(l.minHF) < 0 {
		return domain.ErrPositionUnhealthy
	}

	bal, err := l.liability.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("ledger: close %d: %w", id, err)
	}
	if bal.Cmp(pos.Debt) < 0 {
		return domain.ErrInsufficientBalance
	}

	payout := new(big.Int).Set(pos.Collateral)
	debt := new(big.Int).Set(pos.Debt)

	// State first, transfer last.
	now := time.Now().UTC()
	pos.Status = domain.PositionStatusClosed
	pos.Collateral = new(big.Int)
	pos.ClosedAt = &now
	if err := l.store.Update(ctx, pos); err != nil {
		return fmt.Errorf("ledger: close %d: store: %w", id, err)
	}

	if err := l.liability.Burn(ctx, caller, debt); err != nil {
		return fmt.Errorf("ledger: close %d: burn: %w", id, err)
	}
	if err := l.collateral.Transfer(ctx, CustodyAccount, caller, payout); err != nil {
		return fmt.Errorf("ledger: close %d: payout: %w", id, err)
	}

	l.logger.InfoContext(ctx, "position closed",
		slog.Uint64("id", id),
		slog.String("owner", caller),
		slog.String("payout", payout.String()),
	)
	l.emit(domain.LedgerEvent{
		Type:       domain.EventPositionClosed,
		PositionID: id,
		Owner:      caller,
		Collateral: payout.String(),
		Debt:       debt.String(),
		At:         now,
	})
	return nil
}

// Liquidate closes an unhealthy position. Anyone may call it: the liquidator
// surrenders liability tokens equal to the position's debt, the debt is
// cleared, and the collateral stays in vault custody for the original owner
// to withdraw.
func (l *Ledger) Liquidate(ctx context.Context, caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: liquidate %d: %w", id, err)
	}
	if !pos.IsOpen() {
		return domain.ErrPositionNotOpen
	}

	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return fmt.Errorf("ledger: liquidate %d: %w", id, err)
	}
	hf, err := HealthFactor(pos, quote)
	if err != nil {
		return fmt.Errorf("ledger: liquidate %d: %w", id, err)
	}
	if hf.Cmp(l.minHF) >= 0 {
		return domain.ErrPositionHealthy
	}

	bal, err := l.liability.BalanceOf(ctx, caller)
	if err != nil {
		return fmt.Errorf("ledger: liquidate %d: %w", id, err)
	}
	if bal.Cmp(pos.Debt) < 0 {
		return domain.ErrInsufficientBalance
	}

	debt := new(big.Int).Set(pos.Debt)

	now := time.Now().UTC()
	pos.Status = domain.PositionStatusClosed
	pos.Debt = new(big.Int)
	pos.ClosedAt = &now
	if err := l.store.Update(ctx, pos); err != nil {
		return fmt.Errorf("ledger: liquidate %d: store: %w", id, err)
	}

	if err := l.liability.Burn(ctx, caller, debt); err != nil {
		return fmt.Errorf("ledger: liquidate %d: burn: %w", id, err)
	}

	l.logger.InfoContext(ctx, "position liquidated",
		slog.Uint64("id", id),
		slog.String("liquidator", caller),
		slog.String("debt_burned", debt.String()),
	)
	l.emit(domain.LedgerEvent{
		Type:       domain.EventPositionLiquidated,
		PositionID: id,
		Owner:      pos.Owner,
		Collateral: pos.Collateral.String(),
		Debt:       debt.String(),
		At:         now,
	})
	return nil
}

// Withdraw pays out the remaining collateral of a closed position to its
// owner. Used after liquidation, where collateral stays in custody.
func (l *Ledger) Withdraw(ctx context.Context, caller string, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, err := l.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ledger: withdraw %d: %w", id, err)
	}
	if pos.IsOpen() {
		return domain.ErrPositionStillOpen
	}
	if pos.Owner != caller {
		return domain.ErrNotOwner
	}

	amount := new(big.Int).Set(pos.Collateral)
	if amount.Sign() == 0 {
		return nil
	}

	pos.Collateral = new(big.Int)
	if err := l.store.Update(ctx, pos); err != nil {
		return fmt.Errorf("ledger: withdraw %d: store: %w", id, err)
	}
	if err := l.collateral.Transfer(ctx, CustodyAccount, caller, amount); err != nil {
		return fmt.Errorf("ledger: withdraw %d: payout: %w", id, err)
	}

	l.logger.InfoContext(ctx, "collateral withdrawn",
		slog.Uint64("id", id),
		slog.String("owner", caller),
		slog.String("amount", amount.String()),
	)
	return nil
}

// Position returns the stored record for id.
func (l *Ledger) Position(ctx context.Context, id uint64) (domain.Position, error) {
	return l.store.GetByID(ctx, id)
}

// CollateralValue converts a collateral amount into reference-currency value
// at the current price.
func (l *Ledger) CollateralValue(ctx context.Context, amount *big.Int) (*big.Int, error) {
	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return CollateralValue(amount, quote)
}

// CollateralForMint returns the minimum deposit that supports minting mintUsd
// liability units at the current price.
func (l *Ledger) CollateralForMint(ctx context.Context, mintUsd uint64) (*big.Int, error) {
	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return CollateralForMint(mintUsd, quote, l.minHF)
}

// HealthFactor returns the current solvency ratio of position id.
func (l *Ledger) HealthFactor(ctx context.Context, id uint64) (*big.Int, error) {
	pos, err := l.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pos.IsOpen() || pos.Debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor), nil
	}
	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}
	return HealthFactor(pos, quote)
}

// NeedsLiquidation reports whether position id is below the minimum health
// factor. False for closed or debt-free positions regardless of price.
func (l *Ledger) NeedsLiquidation(ctx context.Context, id uint64) (bool, error) {
	pos, err := l.store.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !pos.IsOpen() || pos.Debt.Sign() == 0 {
		return false, nil
	}
	quote, err := l.price.CurrentPrice(ctx)
	if err != nil {
		return false, err
	}
	return NeedsLiquidation(pos, quote, l.minHF)
}

func (l *Ledger) emit(ev domain.LedgerEvent) {
	if l.sink != nil {
		l.sink.Emit(ev)
	}
}

// Compile-time interface check.
var _ domain.SolvencyReader = (*Ledger)(nil)
