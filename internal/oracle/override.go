package oracle

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// ErrNoLiveFeed is returned when the override is disabled and no live source
// was configured.
var ErrNoLiveFeed = errors.New("oracle: no live feed configured")

// Override selects between a live price source and a fixed demo price. The
// fixed variant exists for deterministic demos and tests; the switch is
// explicit configuration and runtime API, not a hidden flag inside pricing
// logic.
type Override struct {
	mu       sync.RWMutex
	live     domain.PriceSource // may be nil in pure-demo deployments
	enabled  bool
	fixed    *big.Int
	decimals uint8
}

// NewOverride wraps live with a fixed-price switch. decimals is the precision
// the fixed price is quoted at.
func NewOverride(live domain.PriceSource, decimals uint8) *Override {
	return &Override{live: live, decimals: decimals}
}

// EnableFixed switches the source to the given fixed price.
func (o *Override) EnableFixed(price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = true
	if price != nil {
		o.fixed = new(big.Int).Set(price)
	} else {
		o.fixed = new(big.Int)
	}
}

// SetFixed updates the fixed price without toggling the switch.
func (o *Override) SetFixed(price *big.Int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if price != nil {
		o.fixed = new(big.Int).Set(price)
	} else {
		o.fixed = new(big.Int)
	}
}

// DisableFixed switches back to the live source.
func (o *Override) DisableFixed() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enabled = false
}

// FixedEnabled reports whether the fixed variant is active.
func (o *Override) FixedEnabled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.enabled
}

// CurrentPrice returns the fixed price when enabled (failing with
// domain.ErrInvalidPrice if it is zero), otherwise delegates to the live
// source.
func (o *Override) CurrentPrice(ctx context.Context) (domain.PriceQuote, error) {
	o.mu.RLock()
	enabled, fixed, dec, live := o.enabled, o.fixed, o.decimals, o.live
	o.mu.RUnlock()

	if enabled {
		if fixed == nil || fixed.Sign() <= 0 {
			return domain.PriceQuote{}, domain.ErrInvalidPrice
		}
		return domain.PriceQuote{Price: new(big.Int).Set(fixed), Decimals: dec}, nil
	}
	if live == nil {
		return domain.PriceQuote{}, ErrNoLiveFeed
	}
	return live.CurrentPrice(ctx)
}

// Compile-time interface check.
var _ domain.PriceSource = (*Override)(nil)
