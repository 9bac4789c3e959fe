package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
)

// VaultLedger exposes the vault-wide parameters and sizing helper.
type VaultLedger interface {
	MinHealthFactor() *big.Int
	CollateralForMint(ctx context.Context, mintUsd uint64) (*big.Int, error)
}

// VaultParams is static metadata reported by GET /api/vault/params.
type VaultParams struct {
	CollateralSymbol string
	LiabilitySymbol  string
	CustodyAccount   string
}

// VaultHandler serves vault parameter and sizing endpoints.
type VaultHandler struct {
	ledger VaultLedger
	params VaultParams
	logger *slog.Logger
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(ledger VaultLedger, params VaultParams, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		ledger: ledger,
		params: params,
		logger: logger,
	}
}

// GetParams returns the vault's operating parameters.
// GET /api/vault/params
func (h *VaultHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"min_health_factor": h.ledger.MinHealthFactor().String(),
		"collateral_symbol": h.params.CollateralSymbol,
		"liability_symbol":  h.params.LiabilitySymbol,
		"custody_account":   h.params.CustodyAccount,
	})
}

// CollateralForMint returns the minimum deposit for a target mint amount at
// the current price.
// GET /api/vault/collateral-for-mint?mint=1000
func (h *VaultHandler) CollateralForMint(w http.ResponseWriter, r *http.Request) {
	mint, err := strconv.ParseUint(r.URL.Query().Get("mint"), 10, 64)
	if err != nil || mint == 0 {
		writeError(w, http.StatusBadRequest, "mint must be a positive integer")
		return
	}
	needed, err := h.ledger.CollateralForMint(r.Context(), mint)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: collateral sizing failed",
			slog.Uint64("mint", mint),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mint":       mint,
		"collateral": needed.String(),
	})
}
