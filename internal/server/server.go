// Package server hosts the HTTP and WebSocket API in front of the vault
// ledger and keeper audit trail.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/server/handler"
	"github.com/synthlabs/vaultkeeper/internal/server/middleware"
	"github.com/synthlabs/vaultkeeper/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	// RateLimit caps requests per client IP per RateWindow when a limiter
	// is wired. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. Oracle and
// Liquidations are optional and their routes are skipped when nil.
type Handlers struct {
	Health       *handler.HealthHandler
	Positions    *handler.PositionHandler
	Vault        *handler.VaultHandler
	Oracle       *handler.OracleHandler
	Liquidations *handler.LiquidationHandler
}

// Server is the vault's HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered and the middleware chain
// (rate limit, auth, logging, CORS) applied.
func New(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Position lifecycle and queries.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions", handlers.Positions.OpenPosition)
	mux.HandleFunc("GET /api/positions/{id}", handlers.Positions.GetPosition)
	mux.HandleFunc("GET /api/positions/{id}/health", handlers.Positions.GetHealth)
	mux.HandleFunc("POST /api/positions/{id}/close", handlers.Positions.ClosePosition)
	mux.HandleFunc("POST /api/positions/{id}/withdraw", handlers.Positions.WithdrawCollateral)

	// Vault parameters and sizing.
	mux.HandleFunc("GET /api/vault/params", handlers.Vault.GetParams)
	mux.HandleFunc("GET /api/vault/collateral-for-mint", handlers.Vault.CollateralForMint)

	// Demo price controls, present only when an override source is wired.
	if handlers.Oracle != nil {
		mux.HandleFunc("POST /api/oracle/mock", handlers.Oracle.SetMockPrice)
		mux.HandleFunc("DELETE /api/oracle/mock", handlers.Oracle.ClearMockPrice)
	}

	// Keeper audit trail, present only with a liquidation store.
	if handlers.Liquidations != nil {
		mux.HandleFunc("GET /api/liquidations", handlers.Liquidations.ListRecent)
	}

	// WebSocket event stream.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var h http.Handler = mux
	if limiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(limiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start listens for HTTP requests, blocking until shutdown or failure.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
