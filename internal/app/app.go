// Package app wires configuration into a running deployment. Three modes are
// supported: "ledger" runs the in-process position ledger behind the API
// server, "keeper" runs the liquidation monitor against an on-chain vault
// contract, and "full" runs the ledger, the API server, and a local monitor
// in one process.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/synthlabs/vaultkeeper/internal/config"
)

// App is the top-level application: configuration plus the wired
// infrastructure, ready to run one of the deployment modes.
type App struct {
	cfg    *config.Config
	deps   *Dependencies
	logger *slog.Logger
}

// New wires all infrastructure for cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	deps, err := Wire(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &App{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}, nil
}

// Run executes the configured mode until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	a.logger.Info("starting", slog.String("mode", mode))

	switch mode {
	case "ledger":
		return a.runLedger(ctx, false)
	case "full":
		return a.runLedger(ctx, true)
	case "keeper":
		return a.runKeeper(ctx)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// Close releases all wired infrastructure.
func (a *App) Close() {
	a.deps.Close()
}
