package keeper

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/store/memory"
	"github.com/synthlabs/vaultkeeper/internal/token"
	"github.com/synthlabs/vaultkeeper/internal/vault"
)

// stubReader reports a fixed solvency verdict per position ID.
type stubReader struct {
	unhealthy map[uint64]bool
	errOn     map[uint64]error
}

func (r *stubReader) NeedsLiquidation(_ context.Context, id uint64) (bool, error) {
	if err := r.errOn[id]; err != nil {
		return false, err
	}
	return r.unhealthy[id], nil
}

func (r *stubReader) HealthFactor(context.Context, uint64) (*big.Int, error) {
	return big.NewInt(0), nil
}

// stubSubmitter records submissions and returns a scripted result.
type stubSubmitter struct {
	mu        sync.Mutex
	submitted []uint64
	result    domain.Submission
	err       error
}

func (s *stubSubmitter) SubmitLiquidation(_ context.Context, id uint64) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, id)
	if s.err != nil {
		return domain.Submission{}, s.err
	}
	return s.result, nil
}

func (s *stubSubmitter) ids() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.submitted...)
}

// stubLocks always grants or always refuses the tick lock.
type stubLocks struct {
	held bool
}

func (l *stubLocks) Acquire(context.Context, string, time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

func newMonitor(reader domain.SolvencyReader, submitter domain.ActionSubmitter, attempts domain.LiquidationStore, locks domain.LockManager, watch []uint64) *Monitor {
	return New(Config{
		WatchIDs: watch,
		Interval: 10 * time.Millisecond,
	}, reader, submitter, attempts, locks, nil, slog.Default())
}

func TestTickHealthyTakesNoAction(t *testing.T) {
	reader := &stubReader{unhealthy: map[uint64]bool{}}
	submitter := &stubSubmitter{result: domain.Submission{Status: domain.SubmissionSuccess}}
	m := newMonitor(reader, submitter, nil, nil, []uint64{1, 2, 3})

	assert.False(t, m.Tick(context.Background()))
	assert.Empty(t, submitter.ids())
}

func TestTickLiquidatesUnhealthy(t *testing.T) {
	reader := &stubReader{unhealthy: map[uint64]bool{2: true}}
	submitter := &stubSubmitter{result: domain.Submission{Status: domain.SubmissionSuccess, TxHash: "0xabc"}}
	attempts := memory.NewLiquidationStore()
	m := newMonitor(reader, submitter, attempts, nil, []uint64{1, 2, 3})

	assert.True(t, m.Tick(context.Background()))
	assert.Equal(t, []uint64{2}, submitter.ids())

	recorded, err := attempts.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, uint64(2), recorded[0].PositionID)
	assert.Equal(t, domain.SubmissionSuccess, recorded[0].Status)
	assert.Equal(t, "0xabc", recorded[0].TxHash)
	assert.NotEmpty(t, recorded[0].ID)
}

func TestTickRecordsFailedSubmission(t *testing.T) {
	reader := &stubReader{unhealthy: map[uint64]bool{1: true}}
	submitter := &stubSubmitter{err: errors.New("rpc unreachable")}
	attempts := memory.NewLiquidationStore()
	m := newMonitor(reader, submitter, attempts, nil, []uint64{1})

	assert.False(t, m.Tick(context.Background()))

	recorded, err := attempts.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, domain.SubmissionFailure, recorded[0].Status)
	assert.Contains(t, recorded[0].Error, "rpc unreachable")
}

func TestTickReadFailureSkipsPosition(t *testing.T) {
	reader := &stubReader{
		unhealthy: map[uint64]bool{2: true},
		errOn:     map[uint64]error{1: errors.New("read failed")},
	}
	submitter := &stubSubmitter{result: domain.Submission{Status: domain.SubmissionSuccess}}
	m := newMonitor(reader, submitter, nil, nil, []uint64{1, 2})

	// Position 1's read failure does not stop position 2 from acting.
	assert.True(t, m.Tick(context.Background()))
	assert.Equal(t, []uint64{2}, submitter.ids())
}

func TestTickSkipsWhenLockHeld(t *testing.T) {
	reader := &stubReader{unhealthy: map[uint64]bool{1: true}}
	submitter := &stubSubmitter{result: domain.Submission{Status: domain.SubmissionSuccess}}
	m := newMonitor(reader, submitter, nil, &stubLocks{held: true}, []uint64{1})

	assert.False(t, m.Tick(context.Background()))
	assert.Empty(t, submitter.ids())
}

func TestRunStopsOnCancel(t *testing.T) {
	reader := &stubReader{unhealthy: map[uint64]bool{}}
	submitter := &stubSubmitter{}
	m := newMonitor(reader, submitter, nil, &stubLocks{}, []uint64{1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestLocalSubmitter(t *testing.T) {
	ctx := context.Background()

	collateral := token.NewBook("WETH")
	liability := token.NewBook("sUSD")
	price := &fixedPrice{quote: domain.PriceQuote{Price: big.NewInt(310_000_000_000), Decimals: 8}}
	ledger := vault.NewLedger(vault.Config{
		Store:           memory.NewPositionStore(),
		Liability:       liability,
		Collateral:      collateral,
		Price:           price,
		MinHealthFactor: big.NewInt(1_200_000_000_000_000_000),
	}, slog.Default())

	oneUnit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	require.NoError(t, collateral.Mint(ctx, "alice", oneUnit))
	require.NoError(t, liability.Mint(ctx, "keeper", new(big.Int).Mul(big.NewInt(1000), oneUnit)))

	id, err := ledger.OpenPosition(ctx, "alice", oneUnit, 1000)
	require.NoError(t, err)

	sub := NewLocalSubmitter(ledger, "keeper")

	// Healthy: the ledger rejection settles as a failure submission.
	res, err := sub.SubmitLiquidation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionFailure, res.Status)
	assert.Contains(t, res.ErrorMessage, "healthy")

	// Unhealthy: liquidation succeeds with a synthetic tx hash.
	price.quote.Price = big.NewInt(93_000_000_000)
	res, err = sub.SubmitLiquidation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionSuccess, res.Status)
	assert.Contains(t, res.TxHash, "local-")
}

type fixedPrice struct {
	quote domain.PriceQuote
}

func (f *fixedPrice) CurrentPrice(context.Context) (domain.PriceQuote, error) {
	return f.quote, nil
}
