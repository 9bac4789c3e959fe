package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Wallet.PrivateKey)
	redact(&out.Wallet.KeyPassword)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Server.APIKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices and maps so callers cannot mutate the original through
	// the redacted copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = append([]string(nil), cfg.Notify.Events...)
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}
	if cfg.Monitor.WatchIDs != nil {
		out.Monitor.WatchIDs = append([]uint64(nil), cfg.Monitor.WatchIDs...)
	}
	if cfg.Vault.SeedCollateral != nil {
		out.Vault.SeedCollateral = make(map[string]string, len(cfg.Vault.SeedCollateral))
		for k, v := range cfg.Vault.SeedCollateral {
			out.Vault.SeedCollateral[k] = v
		}
	}
	if cfg.Vault.SeedLiability != nil {
		out.Vault.SeedLiability = make(map[string]string, len(cfg.Vault.SeedLiability))
		for k, v := range cfg.Vault.SeedLiability {
			out.Vault.SeedLiability[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
