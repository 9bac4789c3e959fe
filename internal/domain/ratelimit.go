package domain

import (
	"context"
	"time"
)

// RateLimiter bounds how often a keyed action may happen within a window.
type RateLimiter interface {
	// Allow reports whether another action under key fits inside the
	// current window of at most limit actions.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
