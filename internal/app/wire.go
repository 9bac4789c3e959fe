package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	s3blob "github.com/synthlabs/vaultkeeper/internal/blob/s3"
	"github.com/synthlabs/vaultkeeper/internal/cache/redis"
	"github.com/synthlabs/vaultkeeper/internal/chain"
	"github.com/synthlabs/vaultkeeper/internal/config"
	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/notify"
	"github.com/synthlabs/vaultkeeper/internal/oracle"
	"github.com/synthlabs/vaultkeeper/internal/store/memory"
	"github.com/synthlabs/vaultkeeper/internal/store/postgres"
	"github.com/synthlabs/vaultkeeper/internal/token"
)

// Dependencies holds the infrastructure the deployment modes compose:
// persistence, coordination, cold storage, alerting, and the price source.
// Optional pieces are nil when their backend is disabled in configuration.
type Dependencies struct {
	Positions domain.PositionStore
	Attempts  domain.LiquidationStore

	Locks   domain.LockManager // nil without Redis
	Bus     *redis.SignalBus   // nil without Redis
	Limiter domain.RateLimiter // nil without Redis

	Archiver *s3blob.Archiver // nil without S3
	Notifier *notify.Notifier // nil without notification channels

	Price      *oracle.Override
	Collateral *token.Book
	Liability  *token.Book

	MinHealthFactor *big.Int

	closers []func() error
	logger  *slog.Logger
}

// Wire builds the Dependencies from configuration, connecting each enabled
// backend and falling back to in-memory implementations where the backend is
// optional. On error every connection already made is released.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{logger: logger}
	ok := false
	defer func() {
		if !ok {
			deps.Close()
		}
	}()

	// Persistence: PostgreSQL when enabled, in-memory otherwise.
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("app: postgres: %w", err)
		}
		deps.addCloser(func() error { pg.Close(); return nil })
		if cfg.Postgres.RunMigrations {
			if err := pg.RunMigrations(ctx); err != nil {
				return nil, fmt.Errorf("app: postgres migrations: %w", err)
			}
		}
		deps.Positions = postgres.NewPositionStore(pg.Pool())
		deps.Attempts = postgres.NewLiquidationStore(pg.Pool())
		logger.Info("postgres connected", slog.String("database", cfg.Postgres.Database))
	} else {
		deps.Positions = memory.NewPositionStore()
		deps.Attempts = memory.NewLiquidationStore()
		logger.Info("using in-memory stores")
	}

	// Redis: tick lock, signal bus, and API rate limiter.
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, fmt.Errorf("app: redis: %w", err)
		}
		deps.addCloser(rc.Close)
		deps.Locks = redis.NewLockManager(rc)
		deps.Bus = redis.NewSignalBus(rc)
		deps.Limiter = redis.NewRateLimiter(rc)
		logger.Info("redis connected", slog.String("addr", cfg.Redis.Addr))
	}

	// S3: cold-storage archiver for settled positions and old attempts.
	if cfg.S3.Enabled {
		sc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("app: s3: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(sc), deps.Positions, deps.Attempts, logger)
		logger.Info("s3 archiver ready", slog.String("bucket", cfg.S3.Bucket))
	}

	// Notification channels.
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
		logger.Info("notifications enabled", slog.Int("channels", len(senders)))
	}

	// Price source: live aggregator feed when configured, with the fixed
	// override on top.
	var live domain.PriceSource
	if cfg.Oracle.FeedAddress != "" {
		client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("app: oracle rpc: %w", err)
		}
		deps.addCloser(func() error { client.Close(); return nil })
		feed, err := oracle.NewFeed(client, cfg.Oracle.FeedAddress, logger)
		if err != nil {
			return nil, fmt.Errorf("app: oracle feed: %w", err)
		}
		live = feed
		logger.Info("oracle feed connected", slog.String("address", cfg.Oracle.FeedAddress))
	}
	deps.Price = oracle.NewOverride(live, cfg.Oracle.Decimals)
	if cfg.Oracle.FixedPrice != "" {
		price, okPrice := new(big.Int).SetString(cfg.Oracle.FixedPrice, 10)
		if !okPrice || price.Sign() <= 0 {
			return nil, fmt.Errorf("app: invalid oracle fixed price %q", cfg.Oracle.FixedPrice)
		}
		deps.Price.EnableFixed(price)
		logger.Info("oracle fixed price enabled", slog.String("price", cfg.Oracle.FixedPrice))
	}

	// Token books, pre-funded from the seed maps.
	deps.Collateral = token.NewBook(cfg.Vault.CollateralSymbol)
	deps.Liability = token.NewBook(cfg.Vault.LiabilitySymbol)
	if err := seedBook(ctx, deps.Collateral, cfg.Vault.SeedCollateral); err != nil {
		return nil, fmt.Errorf("app: seed collateral: %w", err)
	}
	if err := seedBook(ctx, deps.Liability, cfg.Vault.SeedLiability); err != nil {
		return nil, fmt.Errorf("app: seed liability: %w", err)
	}

	minHF, err := cfg.MinHealthFactorWad()
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	deps.MinHealthFactor = minHF

	ok = true
	return deps, nil
}

// seedBook mints each configured seed amount to its account.
func seedBook(ctx context.Context, book *token.Book, seeds map[string]string) error {
	for account, raw := range seeds {
		amount, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			return fmt.Errorf("amount %q for %s is not a decimal integer", raw, account)
		}
		if err := book.Mint(ctx, account, amount); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dependencies) addCloser(fn func() error) {
	d.closers = append(d.closers, fn)
}

// Close releases every connection in reverse acquisition order.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	d.closers = nil
}
