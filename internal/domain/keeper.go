package domain

import (
	"context"
	"math/big"
	"time"
)

// SolvencyReader is the ledger's read-only solvency view consumed by the
// liquidation monitor. Both the in-process ledger and the on-chain contract
// reader satisfy it.
type SolvencyReader interface {
	NeedsLiquidation(ctx context.Context, id uint64) (bool, error)
	HealthFactor(ctx context.Context, id uint64) (*big.Int, error)
}

// SubmissionStatus is the terminal outcome of one submitted action.
type SubmissionStatus string

const (
	SubmissionSuccess SubmissionStatus = "success"
	SubmissionFailure SubmissionStatus = "failure"
)

// Submission is the result returned by an ActionSubmitter once the dispatched
// transaction has settled (or failed to).
type Submission struct {
	Status       SubmissionStatus
	TxHash       string
	ErrorMessage string
}

// ActionSubmitter encodes, signs, and dispatches a liquidate call against the
// ledger, blocking until a settlement status is known.
type ActionSubmitter interface {
	SubmitLiquidation(ctx context.Context, id uint64) (Submission, error)
}

// LiquidationAttempt is one audit record of a keeper submission.
type LiquidationAttempt struct {
	ID         string           `json:"id"`
	PositionID uint64           `json:"position_id"`
	Status     SubmissionStatus `json:"status"`
	TxHash     string           `json:"tx_hash,omitempty"`
	Error      string           `json:"error,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}
