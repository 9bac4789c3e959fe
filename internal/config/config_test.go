package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns defaults completed with the fields a full-mode
// deployment requires.
func validConfig() Config {
	cfg := Defaults()
	cfg.Oracle.FixedPrice = "310000000000"
	cfg.Monitor.WatchIDs = []uint64{1}
	return cfg
}

func TestMinHealthFactorWad(t *testing.T) {
	cfg := validConfig()

	wad, err := cfg.MinHealthFactorWad()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_200_000_000_000_000_000), wad)

	cfg.Vault.MinHealthFactor = "2"
	wad, err = cfg.MinHealthFactorWad()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(2_000_000_000_000_000_000), wad)

	cfg.Vault.MinHealthFactor = "abc"
	_, err = cfg.MinHealthFactorWad()
	assert.Error(t, err)

	// More than 18 fractional digits cannot be represented.
	cfg.Vault.MinHealthFactor = "1.0000000000000000001"
	_, err = cfg.MinHealthFactorWad()
	assert.Error(t, err)
}

func TestWatchSet(t *testing.T) {
	cfg := validConfig()

	cfg.Monitor.WatchIDs = []uint64{7, 3, 3, 0}
	cfg.Monitor.WatchFrom = 0
	cfg.Monitor.WatchTo = 0
	assert.Equal(t, []uint64{3, 7}, cfg.WatchSet())

	// Range merged with explicit IDs, de-duplicated, ascending.
	cfg.Monitor.WatchFrom = 5
	cfg.Monitor.WatchTo = 8
	assert.Equal(t, []uint64{3, 5, 6, 7, 8}, cfg.WatchSet())

	// Inverted range contributes nothing.
	cfg.Monitor.WatchIDs = nil
	cfg.Monitor.WatchFrom = 8
	cfg.Monitor.WatchTo = 5
	assert.Empty(t, cfg.WatchSet())
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "hybrid"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateOracleRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Oracle.FixedPrice = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed_address or fixed_price")

	cfg.Oracle.FeedAddress = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url is required")
}

func TestValidateKeeperMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "keeper"
	cfg.Monitor.WatchIDs = []uint64{1}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rpc_url is required for keeper mode")
	assert.Contains(t, err.Error(), "chain_id must be positive")
	assert.Contains(t, err.Error(), "vault_address is required")
	assert.Contains(t, err.Error(), "private_key or encrypted_key_path")

	cfg.Chain.RPCURL = "http://localhost:8545"
	cfg.Chain.ChainID = 31337
	cfg.Chain.VaultAddress = "0x0000000000000000000000000000000000000001"
	cfg.Wallet.EncryptedKeyPath = "/etc/keeper.key"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")

	cfg.Wallet.KeyPassword = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestValidateMonitorWatchSet(t *testing.T) {
	cfg := validConfig()
	cfg.Monitor.WatchIDs = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one position")
}

func TestValidateMinHealthFactorFloor(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.MinHealthFactor = "0.9"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 1.0")
}

func TestValidateSeedMaps(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.SeedCollateral = map[string]string{"alice": "not-a-number"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed_collateral[alice]")
}

func TestValidateNotifyPairing(t *testing.T) {
	cfg := validConfig()
	cfg.Notify.TelegramToken = "tok"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram_token and telegram_chat_id")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "ledger"
log_level = "debug"

[vault]
min_health_factor = "1.5"

[monitor]
interval = "30s"
watch_ids = [1, 2]

[oracle]
fixed_price = "310000000000"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ledger", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "1.5", cfg.Vault.MinHealthFactor)
	assert.Equal(t, 30*time.Second, cfg.Monitor.Interval.Duration)
	assert.Equal(t, []uint64{1, 2}, cfg.Monitor.WatchIDs)

	// Untouched sections keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "WETH", cfg.Vault.CollateralSymbol)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VAULTKEEPER_SERVER_PORT", "9000")
	t.Setenv("VAULTKEEPER_MODE", "ledger")
	t.Setenv("VAULTKEEPER_MONITOR_WATCH_IDS", "4, 8,15")
	t.Setenv("VAULTKEEPER_MONITOR_INTERVAL", "7s")
	t.Setenv("VAULTKEEPER_REDIS_ENABLED", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "ledger", cfg.Mode)
	assert.Equal(t, []uint64{4, 8, 15}, cfg.Monitor.WatchIDs)
	assert.Equal(t, 7*time.Second, cfg.Monitor.Interval.Duration)
	assert.True(t, cfg.Redis.Enabled)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Wallet.PrivateKey = "secret"
	cfg.Postgres.Password = "secret"
	cfg.Server.APIKey = "secret"
	cfg.Notify.TelegramToken = "secret"

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Server.APIKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Originals are untouched, and redacted slices are independent copies.
	assert.Equal(t, "secret", cfg.Wallet.PrivateKey)
	red.Monitor.WatchIDs[0] = 99
	assert.Equal(t, uint64(1), cfg.Monitor.WatchIDs[0])
}
