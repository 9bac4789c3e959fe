package vault

import (
	"context"
	"log/slog"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/store/memory"
	"github.com/synthlabs/vaultkeeper/internal/token"
)

// stubPrice is a settable price source for ledger tests.
type stubPrice struct {
	mu    sync.Mutex
	quote domain.PriceQuote
	err   error
}

func (s *stubPrice) CurrentPrice(context.Context) (domain.PriceQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.PriceQuote{}, s.err
	}
	return s.quote, nil
}

func (s *stubPrice) set(price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = domain.PriceQuote{Price: big.NewInt(price), Decimals: 8}
}

// recordingSink captures emitted ledger events.
type recordingSink struct {
	mu     sync.Mutex
	events []domain.LedgerEvent
}

func (r *recordingSink) Emit(ev domain.LedgerEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type ledgerFixture struct {
	ledger     *Ledger
	collateral *token.Book
	liability  *token.Book
	price      *stubPrice
	sink       *recordingSink
}

func newFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	f := &ledgerFixture{
		collateral: token.NewBook("WETH"),
		liability:  token.NewBook("sUSD"),
		price:      &stubPrice{},
		sink:       &recordingSink{},
	}
	f.price.set(310_000_000_000) // $3100
	f.ledger = NewLedger(Config{
		Store:           memory.NewPositionStore(),
		Liability:       f.liability,
		Collateral:      f.collateral,
		Price:           f.price,
		MinHealthFactor: big.NewInt(1_200_000_000_000_000_000), // 1.2
		Sink:            f.sink,
	}, slog.Default())
	return f
}

func (f *ledgerFixture) fund(t *testing.T, account string, amount *big.Int) {
	t.Helper()
	require.NoError(t, f.collateral.Mint(context.Background(), account, amount))
}

func (f *ledgerFixture) balance(t *testing.T, book *token.Book, account string) *big.Int {
	t.Helper()
	bal, err := book.BalanceOf(context.Background(), account)
	require.NoError(t, err)
	return bal
}

func TestOpenPosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// Collateral moved into custody, liability minted to the owner.
	assert.Zero(t, f.balance(t, f.collateral, "alice").Sign())
	assert.Equal(t, wad(1), f.balance(t, f.collateral, CustodyAccount))
	assert.Equal(t, wad(1000), f.balance(t, f.liability, "alice"))

	pos, err := f.ledger.Position(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", pos.Owner)
	assert.Equal(t, wad(1), pos.Collateral)
	assert.Equal(t, wad(1000), pos.Debt)
	assert.True(t, pos.IsOpen())

	assert.Equal(t, []domain.EventType{domain.EventPositionOpened}, f.sink.types())
}

func TestOpenPositionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(10))

	_, err := f.ledger.OpenPosition(ctx, "alice", nil, 1000)
	assert.ErrorIs(t, err, domain.ErrNoCollateral)

	_, err = f.ledger.OpenPosition(ctx, "alice", big.NewInt(0), 1000)
	assert.ErrorIs(t, err, domain.ErrNoCollateral)

	_, err = f.ledger.OpenPosition(ctx, "alice", wad(1), 0)
	assert.ErrorIs(t, err, domain.ErrNoMintAmount)
}

func TestOpenPositionBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	need, err := f.ledger.CollateralForMint(ctx, 1000)
	require.NoError(t, err)

	// One wei below the minimum is rejected.
	short := new(big.Int).Sub(need, big.NewInt(1))
	f.fund(t, "alice", short)
	_, err = f.ledger.OpenPosition(ctx, "alice", short, 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientCollateral)

	// The exact minimum is accepted.
	f.fund(t, "bob", need)
	id, err := f.ledger.OpenPosition(ctx, "bob", need, 1000)
	require.NoError(t, err)
	assert.NotZero(t, id)
}

func TestOpenPositionUnfundedDeposit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Solvent request, but alice holds no collateral tokens.
	_, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestClosePosition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	require.NoError(t, f.ledger.ClosePosition(ctx, "alice", id))

	// Debt burned, collateral returned, record settled.
	assert.Zero(t, f.balance(t, f.liability, "alice").Sign())
	assert.Equal(t, wad(1), f.balance(t, f.collateral, "alice"))
	assert.Zero(t, f.balance(t, f.collateral, CustodyAccount).Sign())

	pos, err := f.ledger.Position(ctx, id)
	require.NoError(t, err)
	assert.False(t, pos.IsOpen())
	assert.Zero(t, pos.Collateral.Sign())
	require.NotNil(t, pos.ClosedAt)

	// Terminal: a second close is rejected.
	assert.ErrorIs(t, f.ledger.ClosePosition(ctx, "alice", id), domain.ErrPositionNotOpen)

	assert.Equal(t, []domain.EventType{
		domain.EventPositionOpened,
		domain.EventPositionClosed,
	}, f.sink.types())
}

func TestClosePositionGuards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ledger.ClosePosition(ctx, "mallory", id), domain.ErrNotOwner)
	assert.ErrorIs(t, f.ledger.ClosePosition(ctx, "alice", 99), domain.ErrNotFound)

	// Unhealthy positions cannot be closed by the owner.
	f.price.set(93_000_000_000) // $930
	assert.ErrorIs(t, f.ledger.ClosePosition(ctx, "alice", id), domain.ErrPositionUnhealthy)
}

func TestClosePositionInsufficientLiability(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	// Alice spent part of her minted tokens elsewhere.
	require.NoError(t, f.liability.Transfer(ctx, "alice", "bob", wad(500)))
	assert.ErrorIs(t, f.ledger.ClosePosition(ctx, "alice", id), domain.ErrInsufficientBalance)
}

func TestLiquidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))
	require.NoError(t, f.liability.Mint(ctx, "keeper", wad(1000)))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	// Healthy positions are protected from liquidation.
	assert.ErrorIs(t, f.ledger.Liquidate(ctx, "keeper", id), domain.ErrPositionHealthy)

	f.price.set(93_000_000_000) // $930, hf 0.93
	require.NoError(t, f.ledger.Liquidate(ctx, "keeper", id))

	// The liquidator's liability tokens were burned; the collateral stays in
	// custody for the owner.
	assert.Zero(t, f.balance(t, f.liability, "keeper").Sign())
	assert.Equal(t, wad(1), f.balance(t, f.collateral, CustodyAccount))

	pos, err := f.ledger.Position(ctx, id)
	require.NoError(t, err)
	assert.False(t, pos.IsOpen())
	assert.Zero(t, pos.Debt.Sign())
	assert.Equal(t, wad(1), pos.Collateral)

	// The race loser observes a terminal position.
	assert.ErrorIs(t, f.ledger.Liquidate(ctx, "keeper", id), domain.ErrPositionNotOpen)

	assert.Equal(t, []domain.EventType{
		domain.EventPositionOpened,
		domain.EventPositionLiquidated,
	}, f.sink.types())
}

func TestLiquidateRequiresFunding(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	f.price.set(93_000_000_000)
	assert.ErrorIs(t, f.ledger.Liquidate(ctx, "keeper", id), domain.ErrInsufficientBalance)
}

func TestWithdrawAfterLiquidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))
	require.NoError(t, f.liability.Mint(ctx, "keeper", wad(1000)))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	// Still open: nothing to withdraw yet.
	assert.ErrorIs(t, f.ledger.Withdraw(ctx, "alice", id), domain.ErrPositionStillOpen)

	f.price.set(93_000_000_000)
	require.NoError(t, f.ledger.Liquidate(ctx, "keeper", id))

	assert.ErrorIs(t, f.ledger.Withdraw(ctx, "mallory", id), domain.ErrNotOwner)

	require.NoError(t, f.ledger.Withdraw(ctx, "alice", id))
	assert.Equal(t, wad(1), f.balance(t, f.collateral, "alice"))
	assert.Zero(t, f.balance(t, f.collateral, CustodyAccount).Sign())

	// Idempotent once drained.
	require.NoError(t, f.ledger.Withdraw(ctx, "alice", id))
	assert.Equal(t, wad(1), f.balance(t, f.collateral, "alice"))
}

func TestHealthFactorQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))

	id, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	require.NoError(t, err)

	hf, err := f.ledger.HealthFactor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3_100_000_000_000_000_000), hf)

	needs, err := f.ledger.NeedsLiquidation(ctx, id)
	require.NoError(t, err)
	assert.False(t, needs)

	f.price.set(93_000_000_000)
	needs, err = f.ledger.NeedsLiquidation(ctx, id)
	require.NoError(t, err)
	assert.True(t, needs)

	// Settled positions report the sentinel and never need liquidation.
	require.NoError(t, f.liability.Mint(ctx, "keeper", wad(1000)))
	require.NoError(t, f.ledger.Liquidate(ctx, "keeper", id))

	hf, err = f.ledger.HealthFactor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, MaxHealthFactor, hf)

	needs, err = f.ledger.NeedsLiquidation(ctx, id)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestOpenPositionPriceFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fund(t, "alice", wad(1))
	f.price.err = domain.ErrInvalidPrice

	_, err := f.ledger.OpenPosition(ctx, "alice", wad(1), 1000)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}
