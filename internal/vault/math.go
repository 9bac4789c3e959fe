// Package vault implements the position ledger and the health-factor
// evaluation rules of the synthetic-asset vault: collateral value, solvency
// ratio, and the open/close/liquidate/withdraw state machine.
package vault

import (
	"math/big"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// Wad is the fixed-point scale (10^18) used for collateral amounts, debt, and
// health factors.
var Wad = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// MaxHealthFactor is the sentinel meaning "infinitely healthy", returned for
// closed or debt-free positions. It mirrors the EVM's uint256 maximum.
var MaxHealthFactor = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// CollateralValue converts a collateral amount (18 fractional digits) into
// reference-currency value at the same scale: amount * price / 10^decimals.
// Multiplication happens before division to minimize truncation.
func CollateralValue(amount *big.Int, quote domain.PriceQuote) (*big.Int, error) {
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if amount == nil || amount.Sign() < 0 {
		return nil, domain.ErrNoCollateral
	}
	v := new(big.Int).Mul(amount, quote.Price)
	return v.Quo(v, pow10(quote.Decimals)), nil
}

// healthFactor computes collateralValue * 10^18 / debt. Callers must have
// checked debt > 0.
func healthFactor(collateral, debt *big.Int, quote domain.PriceQuote) (*big.Int, error) {
	value, err := CollateralValue(collateral, quote)
	if err != nil {
		return nil, err
	}
	hf := new(big.Int).Mul(value, Wad)
	return hf.Quo(hf, debt), nil
}

// HealthFactor returns the solvency ratio of a position at the given price,
// scaled by 10^18. Closed or debt-free positions report MaxHealthFactor.
func HealthFactor(p domain.Position, quote domain.PriceQuote) (*big.Int, error) {
	if !p.IsOpen() || p.Debt == nil || p.Debt.Sign() == 0 {
		return new(big.Int).Set(MaxHealthFactor), nil
	}
	return healthFactor(p.Collateral, p.Debt, quote)
}

// NeedsLiquidation reports whether an open, indebted position has fallen
// below the minimum health factor at the given price.
func NeedsLiquidation(p domain.Position, quote domain.PriceQuote, minHF *big.Int) (bool, error) {
	if !p.IsOpen() || p.Debt == nil || p.Debt.Sign() == 0 {
		return false, nil
	}
	hf, err := healthFactor(p.Collateral, p.Debt, quote)
	if err != nil {
		return false, err
	}
	return hf.Cmp(minHF) < 0, nil
}

// CollateralForMint returns the minimum collateral amount whose resulting
// health factor is at least minHF for a mint of mintUsd liability units
// (human scale; scaled by 10^18 internally):
//
//	collateral = ceil(minHF * debt * 10^decimals / (price * 10^18))
//
// Rounding is up: depositing exactly the returned amount is accepted, one
// unit less is rejected.
func CollateralForMint(mintUsd uint64, quote domain.PriceQuote, minHF *big.Int) (*big.Int, error) {
	if quote.Price == nil || quote.Price.Sign() <= 0 {
		return nil, domain.ErrInvalidPrice
	}
	if mintUsd == 0 {
		return nil, domain.ErrNoMintAmount
	}
	debt := new(big.Int).Mul(new(big.Int).SetUint64(mintUsd), Wad)
	num := new(big.Int).Mul(minHF, debt)
	num.Mul(num, pow10(quote.Decimals))
	den := new(big.Int).Mul(quote.Price, Wad)
	num.Add(num, new(big.Int).Sub(den, big.NewInt(1)))
	return num.Quo(num, den), nil
}
