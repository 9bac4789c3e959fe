package token

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

func TestMintAndBalance(t *testing.T) {
	ctx := context.Background()
	b := NewBook("WETH")

	bal, err := b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())

	require.NoError(t, b.Mint(ctx, "alice", big.NewInt(100)))
	require.NoError(t, b.Mint(ctx, "alice", big.NewInt(50)))

	bal, err = b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(150), bal)

	assert.Error(t, b.Mint(ctx, "alice", big.NewInt(-1)))
	assert.Error(t, b.Mint(ctx, "alice", nil))
}

func TestBurn(t *testing.T) {
	ctx := context.Background()
	b := NewBook("sUSD")
	require.NoError(t, b.Mint(ctx, "alice", big.NewInt(100)))

	require.NoError(t, b.Burn(ctx, "alice", big.NewInt(40)))
	bal, err := b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(60), bal)

	assert.ErrorIs(t, b.Burn(ctx, "alice", big.NewInt(61)), domain.ErrInsufficientBalance)
	assert.ErrorIs(t, b.Burn(ctx, "nobody", big.NewInt(1)), domain.ErrInsufficientBalance)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	b := NewBook("WETH")
	require.NoError(t, b.Mint(ctx, "alice", big.NewInt(100)))

	require.NoError(t, b.Transfer(ctx, "alice", "bob", big.NewInt(30)))

	aliceBal, err := b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(70), aliceBal)
	bobBal, err := b.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(30), bobBal)

	assert.ErrorIs(t, b.Transfer(ctx, "alice", "bob", big.NewInt(71)), domain.ErrInsufficientBalance)
}

func TestBalanceOfReturnsCopy(t *testing.T) {
	ctx := context.Background()
	b := NewBook("WETH")
	require.NoError(t, b.Mint(ctx, "alice", big.NewInt(100)))

	bal, err := b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	bal.SetInt64(0)

	again, err := b.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(100), again)
}
