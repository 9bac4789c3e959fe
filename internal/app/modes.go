package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synthlabs/vaultkeeper/internal/chain"
	"github.com/synthlabs/vaultkeeper/internal/crypto"
	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/keeper"
	"github.com/synthlabs/vaultkeeper/internal/server"
	"github.com/synthlabs/vaultkeeper/internal/server/handler"
	"github.com/synthlabs/vaultkeeper/internal/server/ws"
	"github.com/synthlabs/vaultkeeper/internal/vault"
)

// shutdownGrace bounds the HTTP server drain on shutdown.
const shutdownGrace = 10 * time.Second

// runLedger runs the in-process ledger and API server, plus a local
// liquidation monitor when withMonitor is set.
//
// Event routing depends on Redis: with the signal bus wired, ledger events go
// through the bus and the WebSocket hub subscribes like any other consumer;
// without it the hub is fed directly as an in-process sink. The bus path keeps
// a single delivery route when external dashboards subscribe too.
func (a *App) runLedger(ctx context.Context, withMonitor bool) error {
	mode := "ledger"
	if withMonitor {
		mode = "full"
	}

	var (
		hub   *ws.Hub
		sinks []domain.EventSink
	)
	if a.deps.Bus != nil {
		hub = ws.NewHub(a.deps.Bus, mode, a.logger)
		sinks = append(sinks, &busSink{bus: a.deps.Bus, logger: a.logger})
	} else {
		hub = ws.NewHub(nil, mode, a.logger)
		sinks = append(sinks, hub)
	}
	// With a local monitor running, liquidation alerts come from the monitor
	// itself; without one the ledger events drive the notifier.
	if a.deps.Notifier != nil && !withMonitor {
		sinks = append(sinks, &notifySink{notifier: a.deps.Notifier, logger: a.logger})
	}

	ledger := vault.NewLedger(vault.Config{
		Store:           a.deps.Positions,
		Liability:       a.deps.Liability,
		Collateral:      a.deps.Collateral,
		Price:           a.deps.Price,
		MinHealthFactor: a.deps.MinHealthFactor,
		Sink:            newMultiSink(sinks...),
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx) })

	if a.cfg.Server.Enabled {
		handlers := server.Handlers{
			Health:    handler.NewHealthHandler(a.deps.Positions, mode, a.logger),
			Positions: handler.NewPositionHandler(ledger, a.deps.Positions, a.logger),
			Vault: handler.NewVaultHandler(ledger, handler.VaultParams{
				CollateralSymbol: a.cfg.Vault.CollateralSymbol,
				LiabilitySymbol:  a.cfg.Vault.LiabilitySymbol,
				CustodyAccount:   vault.CustodyAccount,
			}, a.logger),
			Oracle:       handler.NewOracleHandler(a.deps.Price, a.logger),
			Liquidations: handler.NewLiquidationHandler(a.deps.Attempts, a.logger),
		}
		srv := server.New(server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIKey:      a.cfg.Server.APIKey,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		}, handlers, hub, a.deps.Limiter, a.logger)

		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if withMonitor && a.cfg.Monitor.Enabled {
		submitter := keeper.NewLocalSubmitter(ledger, a.cfg.Monitor.LiquidatorAccount)
		monitor := keeper.New(keeper.Config{
			WatchIDs: a.cfg.WatchSet(),
			Interval: a.cfg.Monitor.Interval.Duration,
			LockTTL:  a.cfg.Monitor.LockTTL.Duration,
		}, ledger, submitter, a.deps.Attempts, a.deps.Locks, a.deps.Notifier, a.logger)
		g.Go(func() error { return monitor.Run(gctx) })
	}

	if a.deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveInterval.Duration
		retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour
		g.Go(func() error { return a.deps.Archiver.Run(gctx, interval, retention) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runKeeper runs the liquidation monitor against a deployed vault contract.
// No API server is hosted; the keeper's surface is its logs, the attempt
// audit trail, and notifications.
func (a *App) runKeeper(ctx context.Context) error {
	if !a.cfg.Monitor.Enabled {
		return errors.New("app: keeper mode requires monitor.enabled")
	}

	client, err := chain.Dial(ctx, a.cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("app: keeper: %w", err)
	}
	defer client.Close()

	key, err := crypto.LoadKey(crypto.KeySource{
		RawKey:        a.cfg.Wallet.PrivateKey,
		EncryptedPath: a.cfg.Wallet.EncryptedKeyPath,
		Password:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return fmt.Errorf("app: keeper: %w", err)
	}

	reader, err := chain.NewReader(client, a.cfg.Chain.VaultAddress)
	if err != nil {
		return fmt.Errorf("app: keeper: %w", err)
	}
	submitter, err := chain.NewSubmitter(client, key, chain.SubmitterConfig{
		VaultAddress: a.cfg.Chain.VaultAddress,
		ChainID:      a.cfg.Chain.ChainID,
		GasLimit:     a.cfg.Chain.GasLimit,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("app: keeper: %w", err)
	}

	monitor := keeper.New(keeper.Config{
		WatchIDs: a.cfg.WatchSet(),
		Interval: a.cfg.Monitor.Interval.Duration,
		LockTTL:  a.cfg.Monitor.LockTTL.Duration,
	}, reader, submitter, a.deps.Attempts, a.deps.Locks, a.deps.Notifier, a.logger)

	if err := monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
