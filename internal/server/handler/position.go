package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// PositionLedger is the subset of ledger operations the position endpoints use.
type PositionLedger interface {
	OpenPosition(ctx context.Context, owner string, deposit *big.Int, mintUsd uint64) (uint64, error)
	ClosePosition(ctx context.Context, caller string, id uint64) error
	Withdraw(ctx context.Context, caller string, id uint64) error
	Position(ctx context.Context, id uint64) (domain.Position, error)
	HealthFactor(ctx context.Context, id uint64) (*big.Int, error)
	NeedsLiquidation(ctx context.Context, id uint64) (bool, error)
}

// PositionLister lists stored positions.
type PositionLister interface {
	ListOpen(ctx context.Context) ([]domain.Position, error)
	ListSettled(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error)
}

// PositionHandler serves position lifecycle and query endpoints.
type PositionHandler struct {
	ledger PositionLedger
	store  PositionLister
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(ledger PositionLedger, store PositionLister, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		ledger: ledger,
		store:  store,
		logger: logger,
	}
}

// positionView is the JSON shape of a position. Amounts are decimal strings
// so precision survives JSON number parsing.
type positionView struct {
	ID         uint64     `json:"id"`
	Owner      string     `json:"owner"`
	Collateral string     `json:"collateral"`
	Debt       string     `json:"debt"`
	Status     string     `json:"status"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
}

func toView(pos domain.Position) positionView {
	return positionView{
		ID:         pos.ID,
		Owner:      pos.Owner,
		Collateral: pos.Collateral.String(),
		Debt:       pos.Debt.String(),
		Status:     string(pos.Status),
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   pos.ClosedAt,
	}
}

// ListPositions returns open positions, or settled ones with ?status=settled.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	var (
		positions []domain.Position
		err       error
	)
	switch status := r.URL.Query().Get("status"); status {
	case "", "open":
		positions, err = h.store.ListOpen(r.Context())
	case "settled", "closed":
		positions, err = h.store.ListSettled(r.Context(), parseListOpts(r))
	default:
		writeError(w, http.StatusBadRequest, "status must be open or settled")
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list positions")
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, toView(pos))
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": views})
}

// GetPosition returns a single position by ID.
// GET /api/positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}
	pos, err := h.ledger.Position(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(pos))
}

// GetHealth returns the position's health factor and solvency verdict.
// GET /api/positions/{id}/health
func (h *PositionHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}
	hf, err := h.ledger.HealthFactor(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	needs, err := h.ledger.NeedsLiquidation(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"position_id":       id,
		"health_factor":     hf.String(),
		"needs_liquidation": needs,
	})
}

// openRequest is the body of POST /api/positions.
type openRequest struct {
	Owner      string `json:"owner"`
	Collateral string `json:"collateral"`
	Mint       uint64 `json:"mint"`
}

// OpenPosition opens a new position.
// POST /api/positions
func (h *PositionHandler) OpenPosition(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Owner == "" {
		writeError(w, http.StatusBadRequest, "owner required")
		return
	}
	deposit, ok := new(big.Int).SetString(req.Collateral, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "collateral must be a decimal integer string")
		return
	}

	id, err := h.ledger.OpenPosition(r.Context(), req.Owner, deposit, req.Mint)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: open position rejected",
			slog.String("owner", req.Owner),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// callerRequest carries the acting account for close and withdraw.
type callerRequest struct {
	Caller string `json:"caller"`
}

// ClosePosition settles a healthy position on behalf of its owner.
// POST /api/positions/{id}/close
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ledger.ClosePosition, "closed")
}

// WithdrawCollateral pays out stranded collateral of a settled position.
// POST /api/positions/{id}/withdraw
func (h *PositionHandler) WithdrawCollateral(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.ledger.Withdraw, "withdrawn")
}

func (h *PositionHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string, uint64) error, result string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid position id")
		return
	}
	var req callerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller required")
		return
	}
	if err := op(r.Context(), req.Caller, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "result": result})
}
