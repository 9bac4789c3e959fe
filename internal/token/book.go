// Package token provides an in-memory fungible balance book with standard
// mint/burn/transfer semantics. The vault consumes one book as the liability
// token ledger and one as the collateral bank in local and demo deployments;
// on-chain deployments consume the real token contract instead.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// Book tracks balances keyed by account identity. All amounts are unsigned;
// operations that would drive a balance negative fail with
// domain.ErrInsufficientBalance.
type Book struct {
	mu       sync.Mutex
	symbol   string
	balances map[string]*big.Int
}

// NewBook creates an empty Book. The symbol only appears in error messages.
func NewBook(symbol string) *Book {
	return &Book{
		symbol:   symbol,
		balances: make(map[string]*big.Int),
	}
}

func (b *Book) balance(account string) *big.Int {
	if bal, ok := b.balances[account]; ok {
		return bal
	}
	bal := new(big.Int)
	b.balances[account] = bal
	return bal
}

// Mint credits amount to account.
func (b *Book) Mint(_ context.Context, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token %s: mint: negative amount", b.symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(account)
	bal.Add(bal, amount)
	return nil
}

// Burn debits amount from account.
func (b *Book) Burn(_ context.Context, account string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token %s: burn: negative amount", b.symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balance(account)
	if bal.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	bal.Sub(bal, amount)
	return nil
}

// Transfer moves amount from one account to another.
func (b *Book) Transfer(_ context.Context, from, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("token %s: transfer: negative amount", b.symbol)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.balance(from)
	if src.Cmp(amount) < 0 {
		return domain.ErrInsufficientBalance
	}
	src.Sub(src, amount)
	dst := b.balance(to)
	dst.Add(dst, amount)
	return nil
}

// BalanceOf returns a copy of the account's balance.
func (b *Book) BalanceOf(_ context.Context, account string) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(account)), nil
}

// Compile-time interface check.
var _ domain.TokenBook = (*Book)(nil)
