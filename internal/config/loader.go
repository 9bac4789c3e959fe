package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VAULTKEEPER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VAULTKEEPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "VAULTKEEPER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "VAULTKEEPER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "VAULTKEEPER_WALLET_KEY_PASSWORD")

	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "VAULTKEEPER_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "VAULTKEEPER_CHAIN_CHAIN_ID")
	setStr(&cfg.Chain.VaultAddress, "VAULTKEEPER_CHAIN_VAULT_ADDRESS")
	setUint64(&cfg.Chain.GasLimit, "VAULTKEEPER_CHAIN_GAS_LIMIT")

	// ── Oracle ──
	setStr(&cfg.Oracle.FeedAddress, "VAULTKEEPER_ORACLE_FEED_ADDRESS")
	setUint8(&cfg.Oracle.Decimals, "VAULTKEEPER_ORACLE_DECIMALS")
	setStr(&cfg.Oracle.FixedPrice, "VAULTKEEPER_ORACLE_FIXED_PRICE")

	// ── Vault ──
	setStr(&cfg.Vault.MinHealthFactor, "VAULTKEEPER_VAULT_MIN_HEALTH_FACTOR")
	setStr(&cfg.Vault.CollateralSymbol, "VAULTKEEPER_VAULT_COLLATERAL_SYMBOL")
	setStr(&cfg.Vault.LiabilitySymbol, "VAULTKEEPER_VAULT_LIABILITY_SYMBOL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "VAULTKEEPER_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "VAULTKEEPER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "VAULTKEEPER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "VAULTKEEPER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "VAULTKEEPER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "VAULTKEEPER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "VAULTKEEPER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "VAULTKEEPER_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "VAULTKEEPER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "VAULTKEEPER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "VAULTKEEPER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "VAULTKEEPER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "VAULTKEEPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VAULTKEEPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VAULTKEEPER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VAULTKEEPER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VAULTKEEPER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VAULTKEEPER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "VAULTKEEPER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "VAULTKEEPER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VAULTKEEPER_S3_REGION")
	setStr(&cfg.S3.Bucket, "VAULTKEEPER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VAULTKEEPER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VAULTKEEPER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VAULTKEEPER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VAULTKEEPER_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "VAULTKEEPER_S3_ARCHIVE_INTERVAL")
	setInt(&cfg.S3.RetentionDays, "VAULTKEEPER_S3_RETENTION_DAYS")

	// ── Monitor ──
	setBool(&cfg.Monitor.Enabled, "VAULTKEEPER_MONITOR_ENABLED")
	setDuration(&cfg.Monitor.Interval, "VAULTKEEPER_MONITOR_INTERVAL")
	setDuration(&cfg.Monitor.LockTTL, "VAULTKEEPER_MONITOR_LOCK_TTL")
	setUint64Slice(&cfg.Monitor.WatchIDs, "VAULTKEEPER_MONITOR_WATCH_IDS")
	setUint64(&cfg.Monitor.WatchFrom, "VAULTKEEPER_MONITOR_WATCH_FROM")
	setUint64(&cfg.Monitor.WatchTo, "VAULTKEEPER_MONITOR_WATCH_TO")
	setStr(&cfg.Monitor.LiquidatorAccount, "VAULTKEEPER_MONITOR_LIQUIDATOR_ACCOUNT")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "VAULTKEEPER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "VAULTKEEPER_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VAULTKEEPER_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "VAULTKEEPER_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "VAULTKEEPER_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "VAULTKEEPER_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "VAULTKEEPER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VAULTKEEPER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VAULTKEEPER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "VAULTKEEPER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "VAULTKEEPER_MODE")
	setStr(&cfg.LogLevel, "VAULTKEEPER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint8(dst *uint8, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil {
			*dst = uint8(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

func setUint64Slice(dst *[]uint64, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		ids := make([]uint64, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			n, err := strconv.ParseUint(p, 10, 64)
			if err != nil {
				return
			}
			ids = append(ids, n)
		}
		if len(ids) > 0 {
			*dst = ids
		}
	}
}
