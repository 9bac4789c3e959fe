package domain

import (
	"context"
	"math/big"
)

// PriceQuote is one observation from a price feed. Price carries Decimals
// fractional digits; for a Chainlink-style USD feed Decimals is typically 8.
type PriceQuote struct {
	Price    *big.Int
	Decimals uint8
}

// PriceSource reports the current reference-currency price of one unit of
// collateral. Implementations must not cache: every call re-queries the
// upstream feed so callers always act on the latest visible tick.
type PriceSource interface {
	CurrentPrice(ctx context.Context) (PriceQuote, error)
}
