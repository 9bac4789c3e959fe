package domain

import "errors"

// Validation errors: the caller can retry with corrected input.
var (
	ErrNoCollateral           = errors.New("no collateral deposited")
	ErrNoMintAmount           = errors.New("mint amount is zero")
	ErrInsufficientCollateral = errors.New("insufficient collateral for requested mint")
	ErrInvalidPrice           = errors.New("invalid oracle price")
	ErrNotOwner               = errors.New("caller is not the position owner")
)

// State-conflict errors: the caller must re-check state before retrying.
var (
	ErrPositionNotOpen     = errors.New("position is not open")
	ErrPositionHealthy     = errors.New("position is healthy")
	ErrPositionUnhealthy   = errors.New("position is unhealthy")
	ErrPositionStillOpen   = errors.New("position is still open")
	ErrInsufficientBalance = errors.New("insufficient token balance")
)

// Infrastructure errors.
var (
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
