package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Counter reports how many positions the store holds, open or settled.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	store     Counter
	mode      string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. store may be nil when the process
// runs without a position store.
func NewHealthHandler(store Counter, mode string, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		mode:      mode,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// HealthCheck responds with liveness plus a cheap store probe.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":         "ok",
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if h.store != nil {
		n, err := h.store.Count(r.Context())
		if err != nil {
			h.logger.ErrorContext(r.Context(), "handler: store probe failed",
				slog.String("error", err.Error()),
			)
			resp["status"] = "degraded"
		} else {
			resp["positions"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
