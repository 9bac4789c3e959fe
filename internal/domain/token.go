package domain

import (
	"context"
	"math/big"
)

// TokenBook is the fungible-token collaborator boundary: standard
// mint/burn/transfer bookkeeping keyed by account identity. The vault consumes
// one book for the liability token and one for collateral custody; it never
// reimplements token semantics itself.
type TokenBook interface {
	Mint(ctx context.Context, account string, amount *big.Int) error
	Burn(ctx context.Context, account string, amount *big.Int) error
	Transfer(ctx context.Context, from, to string, amount *big.Int) error
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}
