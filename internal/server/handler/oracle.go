package handler

import (
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
)

// PriceOverride toggles the fixed demo price on the oracle source.
type PriceOverride interface {
	EnableFixed(price *big.Int)
	DisableFixed()
	FixedEnabled() bool
}

// OracleHandler serves the mock-price control endpoints used for demos and
// failure drills. Registered only when an override source is wired.
type OracleHandler struct {
	override PriceOverride
	logger   *slog.Logger
}

// NewOracleHandler creates an OracleHandler.
func NewOracleHandler(override PriceOverride, logger *slog.Logger) *OracleHandler {
	return &OracleHandler{
		override: override,
		logger:   logger,
	}
}

// mockRequest is the body of POST /api/oracle/mock. Price is quoted at the
// oracle's configured decimals.
type mockRequest struct {
	Price string `json:"price"`
}

// SetMockPrice pins the oracle to a fixed price.
// POST /api/oracle/mock
func (h *OracleHandler) SetMockPrice(w http.ResponseWriter, r *http.Request) {
	var req mockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	price, ok := new(big.Int).SetString(req.Price, 10)
	if !ok || price.Sign() <= 0 {
		writeError(w, http.StatusBadRequest, "price must be a positive decimal integer string")
		return
	}

	h.override.EnableFixed(price)
	h.logger.InfoContext(r.Context(), "mock price enabled",
		slog.String("price", price.String()),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"fixed_enabled": true,
		"price":         price.String(),
	})
}

// ClearMockPrice returns the oracle to its live source.
// DELETE /api/oracle/mock
func (h *OracleHandler) ClearMockPrice(w http.ResponseWriter, r *http.Request) {
	h.override.DisableFixed()
	h.logger.InfoContext(r.Context(), "mock price disabled")
	writeJSON(w, http.StatusOK, map[string]any{"fixed_enabled": false})
}
