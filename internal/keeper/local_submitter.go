package keeper

import (
	"context"

	"github.com/google/uuid"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/vault"
)

// LocalSubmitter drives the in-process ledger directly, acting as the keeper
// account. It is the submitter for demo and full modes, where ledger and
// monitor share a process; on-chain deployments use the EVM submitter.
type LocalSubmitter struct {
	ledger  *vault.Ledger
	account string
}

// NewLocalSubmitter creates a submitter that liquidates as account.
func NewLocalSubmitter(ledger *vault.Ledger, account string) *LocalSubmitter {
	return &LocalSubmitter{ledger: ledger, account: account}
}

// SubmitLiquidation calls the ledger's liquidate transition. Ledger rejections
// surface as a failure submission, not an error: the monitor treats them as a
// settled unsuccessful action.
func (s *LocalSubmitter) SubmitLiquidation(ctx context.Context, id uint64) (domain.Submission, error) {
	if err := s.ledger.Liquidate(ctx, s.account, id); err != nil {
		return domain.Submission{
			Status:       domain.SubmissionFailure,
			ErrorMessage: err.Error(),
		}, nil
	}
	return domain.Submission{
		Status: domain.SubmissionSuccess,
		TxHash: "local-" + uuid.New().String(),
	}, nil
}

// Compile-time interface check.
var _ domain.ActionSubmitter = (*LocalSubmitter)(nil)
