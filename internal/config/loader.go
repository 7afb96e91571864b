package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MT5MON_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known MT5MON_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setStr(&cfg.Server.Host, "MT5MON_SERVER_HOST")
	setInt(&cfg.Server.Port, "MT5MON_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "MT5MON_SERVER_CORS_ORIGINS")

	// ── Cache ──
	setInt(&cfg.Cache.TTLSeconds, "MT5MON_CACHE_TTL_SECONDS")
	setInt(&cfg.Cache.AgentTimeoutSeconds, "MT5MON_CACHE_AGENT_TIMEOUT_SECONDS")

	// ── Data files ──
	setStr(&cfg.Data.PhaseFile, "MT5MON_DATA_PHASE_FILE")
	setStr(&cfg.Data.VSFile, "MT5MON_DATA_VS_FILE")
	setStr(&cfg.Data.VersusFile, "MT5MON_DATA_VERSUS_FILE")
	setStr(&cfg.Data.TradeHistoryFile, "MT5MON_DATA_TRADE_HISTORY_FILE")

	// ── Auth ──
	setStr(&cfg.Auth.Secret, "MT5MON_AUTH_SECRET")
	setInt(&cfg.Auth.TokenTTLHours, "MT5MON_AUTH_TOKEN_TTL_HOURS")
	setStr(&cfg.Auth.LoginPassword, "MT5MON_AUTH_LOGIN_PASSWORD")

	// ── Features ──
	setBool(&cfg.Features.TradingEnabled, "MT5MON_FEATURES_TRADING_ENABLED")
	setBool(&cfg.Features.VersusEnabled, "MT5MON_FEATURES_VERSUS_ENABLED")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "MT5MON_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "MT5MON_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "MT5MON_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "MT5MON_NOTIFY_EVENTS")

	// ── Export ──
	setBool(&cfg.Export.Enabled, "MT5MON_EXPORT_ENABLED")
	setStr(&cfg.Export.Endpoint, "MT5MON_EXPORT_ENDPOINT")
	setStr(&cfg.Export.Region, "MT5MON_EXPORT_REGION")
	setStr(&cfg.Export.Bucket, "MT5MON_EXPORT_BUCKET")
	setStr(&cfg.Export.AccessKey, "MT5MON_EXPORT_ACCESS_KEY")
	setStr(&cfg.Export.SecretKey, "MT5MON_EXPORT_SECRET_KEY")
	setBool(&cfg.Export.UseSSL, "MT5MON_EXPORT_USE_SSL")
	setBool(&cfg.Export.ForcePathStyle, "MT5MON_EXPORT_FORCE_PATH_STYLE")
	setStr(&cfg.Export.Prefix, "MT5MON_EXPORT_PREFIX")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "MT5MON_LOG_LEVEL")
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
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
