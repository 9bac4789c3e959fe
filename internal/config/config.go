// Package config defines the top-level configuration for the vault keeper
// and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VAULTKEEPER_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Chain    ChainConfig    `toml:"chain"`
	Oracle   OracleConfig   `toml:"oracle"`
	Vault    VaultConfig    `toml:"vault"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the keeper's signing credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ChainConfig holds the EVM endpoint and vault contract parameters used in
// keeper mode.
type ChainConfig struct {
	RPCURL       string `toml:"rpc_url"`
	ChainID      int64  `toml:"chain_id"`
	VaultAddress string `toml:"vault_address"`
	GasLimit     uint64 `toml:"gas_limit"`
}

// OracleConfig holds the price source parameters.
type OracleConfig struct {
	// FeedAddress is the on-chain aggregator contract. Empty disables the
	// live feed.
	FeedAddress string `toml:"feed_address"`
	// Decimals is the precision fixed prices are quoted at.
	Decimals uint8 `toml:"decimals"`
	// FixedPrice pins the source to a fixed price at boot when non-empty
	// (decimal integer string at Decimals precision).
	FixedPrice string `toml:"fixed_price"`
}

// VaultConfig holds the ledger's solvency parameters and token metadata.
type VaultConfig struct {
	// MinHealthFactor is a decimal ratio such as "1.2".
	MinHealthFactor  string `toml:"min_health_factor"`
	CollateralSymbol string `toml:"collateral_symbol"`
	LiabilitySymbol  string `toml:"liability_symbol"`
	// SeedCollateral pre-funds accounts in the collateral book at boot
	// (account name to amount, decimal integer string at 10^18 scale).
	// Demo convenience for deployments without an external faucet.
	SeedCollateral map[string]string `toml:"seed_collateral"`
	// SeedLiability pre-funds liability balances the same way. The
	// liquidator account needs liability tokens to burn.
	SeedLiability map[string]string `toml:"seed_liability"`
}

// PostgresConfig holds PostgreSQL connection parameters. Disabled deployments
// fall back to the in-memory store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Enabled         bool     `toml:"enabled"`
	Endpoint        string   `toml:"endpoint"`
	Region          string   `toml:"region"`
	Bucket          string   `toml:"bucket"`
	AccessKey       string   `toml:"access_key"`
	SecretKey       string   `toml:"secret_key"`
	UseSSL          bool     `toml:"use_ssl"`
	ForcePathStyle  bool     `toml:"force_path_style"`
	ArchiveInterval duration `toml:"archive_interval"`
	RetentionDays   int      `toml:"retention_days"`
}

// MonitorConfig holds the liquidation monitor parameters.
type MonitorConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
	// LockTTL bounds the distributed tick lock. Zero defaults to Interval.
	LockTTL duration `toml:"lock_ttl"`
	// WatchIDs is the explicit set of position IDs to evaluate each tick.
	WatchIDs []uint64 `toml:"watch_ids"`
	// WatchFrom/WatchTo add an inclusive ID range to the watch set. Both
	// zero disables the range.
	WatchFrom uint64 `toml:"watch_from"`
	WatchTo   uint64 `toml:"watch_to"`
	// LiquidatorAccount funds liquidations when the monitor acts on the
	// in-process ledger.
	LiquidatorAccount string `toml:"liquidator_account"`
}

// duration wraps time.Duration for TOML string decoding ("5s", "2m").
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Oracle: OracleConfig{
			Decimals: 8,
		},
		Vault: VaultConfig{
			MinHealthFactor:  "1.2",
			CollateralSymbol: "WETH",
			LiabilitySymbol:  "sUSD",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "vaultkeeper",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:         false,
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			Bucket:          "vaultkeeper-archive",
			ForcePathStyle:  true,
			ArchiveInterval: duration{24 * time.Hour},
			RetentionDays:   90,
		},
		Chain: ChainConfig{
			GasLimit: 500_000,
		},
		Monitor: MonitorConfig{
			Enabled:           true,
			Interval:          duration{5 * time.Second},
			LiquidatorAccount: "keeper",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"position_liquidated", "liquidation_failed"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
//
//	ledger: in-process ledger plus API server, no on-chain keeper
//	keeper: on-chain monitor against a deployed vault contract
//	full:   ledger, API server, and monitor against the local ledger
var validModes = map[string]bool{
	"ledger": true,
	"keeper": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// MinHealthFactorWad converts the configured decimal ratio to 10^18 scale.
func (c *Config) MinHealthFactorWad() (*big.Int, error) {
	return parseWad(c.Vault.MinHealthFactor)
}

// parseWad parses a decimal ratio string into a 10^18-scaled integer.
func parseWad(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("config: invalid decimal %q", s)
	}
	wad := new(big.Rat).Mul(r, new(big.Rat).SetInt64(1e18))
	if !wad.IsInt() {
		return nil, fmt.Errorf("config: %q has more than 18 fractional digits", s)
	}
	return new(big.Int).Set(wad.Num()), nil
}

// WatchSet resolves the monitor's watch set: the explicit IDs plus the
// optional inclusive range, de-duplicated and ascending.
func (c *Config) WatchSet() []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	add := func(id uint64) {
		if id == 0 || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, id := range c.Monitor.WatchIDs {
		add(id)
	}
	if c.Monitor.WatchFrom > 0 && c.Monitor.WatchTo >= c.Monitor.WatchFrom {
		for id := c.Monitor.WatchFrom; id <= c.Monitor.WatchTo; id++ {
			add(id)
		}
	}
	// Inputs are appended in order; explicit IDs may interleave with the
	// range, so sort once here.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: ledger, keeper, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Vault
	if _, err := c.MinHealthFactorWad(); err != nil {
		errs = append(errs, fmt.Sprintf("vault: min_health_factor: %v", err))
	} else if wad, _ := c.MinHealthFactorWad(); wad.Cmp(big.NewInt(1e18)) < 0 {
		errs = append(errs, fmt.Sprintf("vault: min_health_factor must be at least 1.0, got %s", c.Vault.MinHealthFactor))
	}
	for account, amount := range c.Vault.SeedCollateral {
		if _, ok := new(big.Int).SetString(amount, 10); !ok {
			errs = append(errs, fmt.Sprintf("vault: seed_collateral[%s] is not a decimal integer: %q", account, amount))
		}
	}
	for account, amount := range c.Vault.SeedLiability {
		if _, ok := new(big.Int).SetString(amount, 10); !ok {
			errs = append(errs, fmt.Sprintf("vault: seed_liability[%s] is not a decimal integer: %q", account, amount))
		}
	}

	// Oracle
	if c.Oracle.FixedPrice != "" {
		if p, ok := new(big.Int).SetString(c.Oracle.FixedPrice, 10); !ok || p.Sign() <= 0 {
			errs = append(errs, fmt.Sprintf("oracle: fixed_price must be a positive decimal integer, got %q", c.Oracle.FixedPrice))
		}
	}
	if mode == "ledger" || mode == "full" {
		if c.Oracle.FixedPrice == "" && c.Oracle.FeedAddress == "" {
			errs = append(errs, "oracle: either feed_address or fixed_price must be set for mode "+mode)
		}
	}
	if c.Oracle.FeedAddress != "" && c.Chain.RPCURL == "" {
		errs = append(errs, "chain: rpc_url is required when oracle.feed_address is set")
	}

	// Chain and wallet, needed only for the on-chain keeper.
	if mode == "keeper" {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for keeper mode")
		}
		if c.Chain.ChainID <= 0 {
			errs = append(errs, fmt.Sprintf("chain: chain_id must be positive, got %d", c.Chain.ChainID))
		}
		if c.Chain.VaultAddress == "" {
			errs = append(errs, "chain: vault_address is required for keeper mode")
		}
		if c.Chain.GasLimit == 0 {
			errs = append(errs, "chain: gas_limit must be positive")
		}
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set for keeper mode")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
	}

	// Monitor
	if c.Monitor.Enabled {
		if c.Monitor.Interval.Duration <= 0 {
			errs = append(errs, "monitor: interval must be positive")
		}
		if len(c.WatchSet()) == 0 {
			errs = append(errs, "monitor: watch_ids or watch_from/watch_to must name at least one position")
		}
		if (mode == "ledger" || mode == "full") && c.Monitor.LiquidatorAccount == "" {
			errs = append(errs, "monitor: liquidator_account must not be empty")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
		if c.S3.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "s3: archive_interval must be positive")
		}
		if c.S3.RetentionDays < 1 {
			errs = append(errs, "s3: retention_days must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must not be negative")
		}
	}

	// Notify channels must be complete when partially configured.
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
