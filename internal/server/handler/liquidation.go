package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// AttemptLister reads recorded liquidation attempts.
type AttemptLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.LiquidationAttempt, error)
}

// LiquidationHandler serves the keeper's liquidation audit trail.
type LiquidationHandler struct {
	attempts AttemptLister
	logger   *slog.Logger
}

// NewLiquidationHandler creates a LiquidationHandler.
func NewLiquidationHandler(attempts AttemptLister, logger *slog.Logger) *LiquidationHandler {
	return &LiquidationHandler{
		attempts: attempts,
		logger:   logger,
	}
}

// ListRecent returns the most recent liquidation attempts, newest first.
// GET /api/liquidations?limit=50
func (h *LiquidationHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	attempts, err := h.attempts.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list liquidations failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list liquidation attempts")
		return
	}
	if attempts == nil {
		attempts = []domain.LiquidationAttempt{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
