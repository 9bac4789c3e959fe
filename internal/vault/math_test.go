package vault

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// usdQuote is a Chainlink-style 8-decimal USD quote.
func usdQuote(price int64) domain.PriceQuote {
	return domain.PriceQuote{Price: big.NewInt(price), Decimals: 8}
}

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Wad)
}

func TestCollateralValue(t *testing.T) {
	// 1 unit of collateral at $3100.00000000.
	v, err := CollateralValue(wad(1), usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, wad(3100), v)

	// Half a unit truncates toward zero.
	half := new(big.Int).Div(Wad, big.NewInt(2))
	v, err = CollateralValue(half, usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, wad(1550), v)

	// Zero collateral is worth zero.
	v, err = CollateralValue(big.NewInt(0), usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Zero(t, v.Sign())
}

func TestCollateralValueRejectsBadInputs(t *testing.T) {
	_, err := CollateralValue(wad(1), usdQuote(0))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = CollateralValue(wad(1), usdQuote(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = CollateralValue(wad(1), domain.PriceQuote{})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = CollateralValue(nil, usdQuote(310_000_000_000))
	assert.ErrorIs(t, err, domain.ErrNoCollateral)

	_, err = CollateralValue(big.NewInt(-1), usdQuote(310_000_000_000))
	assert.ErrorIs(t, err, domain.ErrNoCollateral)
}

func TestHealthFactor(t *testing.T) {
	open := domain.Position{
		Status:     domain.PositionStatusOpen,
		Collateral: wad(1),
		Debt:       wad(1000),
	}

	// $3100 of collateral against 1000 debt: hf = 3.1.
	hf, err := HealthFactor(open, usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(3_100_000_000_000_000_000), hf)

	// A 70% price drop to $930 puts hf at 0.93.
	hf, err = HealthFactor(open, usdQuote(93_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(930_000_000_000_000_000), hf)
}

func TestHealthFactorSentinel(t *testing.T) {
	closed := domain.Position{
		Status:     domain.PositionStatusClosed,
		Collateral: wad(1),
		Debt:       wad(1000),
	}
	hf, err := HealthFactor(closed, usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, MaxHealthFactor, hf)

	debtFree := domain.Position{
		Status:     domain.PositionStatusOpen,
		Collateral: wad(1),
		Debt:       big.NewInt(0),
	}
	hf, err = HealthFactor(debtFree, usdQuote(310_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, MaxHealthFactor, hf)
}

func TestNeedsLiquidation(t *testing.T) {
	minHF := big.NewInt(1_200_000_000_000_000_000) // 1.2
	open := domain.Position{
		Status:     domain.PositionStatusOpen,
		Collateral: wad(1),
		Debt:       wad(1000),
	}

	needs, err := NeedsLiquidation(open, usdQuote(310_000_000_000), minHF)
	require.NoError(t, err)
	assert.False(t, needs)

	needs, err = NeedsLiquidation(open, usdQuote(93_000_000_000), minHF)
	require.NoError(t, err)
	assert.True(t, needs)

	// Closed and debt-free positions never need liquidation, whatever the
	// price.
	closed := open
	closed.Status = domain.PositionStatusClosed
	needs, err = NeedsLiquidation(closed, usdQuote(1), minHF)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestCollateralForMintRoundsUp(t *testing.T) {
	minHF := big.NewInt(1_200_000_000_000_000_000) // 1.2
	quote := usdQuote(310_000_000_000)             // $3100

	// 1.2 * 1000 / 3100 = 0.38709677... units, rounded up to the next wei.
	need, err := CollateralForMint(1000, quote, minHF)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(387_096_774_193_548_388), need)

	// Depositing exactly the returned amount clears the minimum.
	hf, err := HealthFactor(domain.Position{
		Status:     domain.PositionStatusOpen,
		Collateral: need,
		Debt:       wad(1000),
	}, quote)
	require.NoError(t, err)
	assert.True(t, hf.Cmp(minHF) >= 0)

	// One wei less does not.
	hf, err = HealthFactor(domain.Position{
		Status:     domain.PositionStatusOpen,
		Collateral: new(big.Int).Sub(need, big.NewInt(1)),
		Debt:       wad(1000),
	}, quote)
	require.NoError(t, err)
	assert.True(t, hf.Cmp(minHF) < 0)
}

func TestCollateralForMintRejectsBadInputs(t *testing.T) {
	minHF := big.NewInt(1_200_000_000_000_000_000)

	_, err := CollateralForMint(0, usdQuote(310_000_000_000), minHF)
	assert.ErrorIs(t, err, domain.ErrNoMintAmount)

	_, err = CollateralForMint(1000, usdQuote(0), minHF)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}
