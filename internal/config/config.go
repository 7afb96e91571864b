// Package config defines the top-level configuration for the backend and
// provides validation helpers.
package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by MT5MON_* environment variables.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Agents   []AgentConfig  `toml:"agents"`
	Cache    CacheConfig    `toml:"cache"`
	Data     DataConfig     `toml:"data"`
	Auth     AuthConfig     `toml:"auth"`
	Features FeatureConfig  `toml:"features"`
	Notify   NotifyConfig   `toml:"notify"`
	Export   ExportConfig   `toml:"export"`
	LogLevel string         `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// AgentConfig identifies one remote terminal agent. Name must be unique and
// stable for the process lifetime.
type AgentConfig struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// CacheConfig holds snapshot cache and agent call parameters.
type CacheConfig struct {
	TTLSeconds          int `toml:"ttl_seconds"`
	AgentTimeoutSeconds int `toml:"agent_timeout_seconds"`
}

// DataConfig holds the file paths of the persisted stores.
type DataConfig struct {
	PhaseFile        string `toml:"phase_file"`
	VSFile           string `toml:"vs_file"`
	VersusFile       string `toml:"versus_file"`
	TradeHistoryFile string `toml:"trade_history_file"`
}

// AuthConfig holds the shared-secret token scheme parameters.
type AuthConfig struct {
	Secret        string `toml:"secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
	LoginPassword string `toml:"login_password"`
}

// FeatureConfig holds the trading safety switches.
type FeatureConfig struct {
	TradingEnabled bool `toml:"trading_enabled"`
	VersusEnabled  bool `toml:"versus_enabled"`
}

// NotifyConfig holds chat sink credentials. Empty credentials disable the
// corresponding sender.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ExportConfig holds the optional spreadsheet export sink (CSV to an
// S3-compatible object store).
type ExportConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"*"},
		},
		Cache: CacheConfig{
			TTLSeconds:          60,
			AgentTimeoutSeconds: 10,
		},
		Data: DataConfig{
			PhaseFile:        "data/phases.json",
			VSFile:           "data/vs_data.json",
			VersusFile:       "data/versus_data.json",
			TradeHistoryFile: "data/trade_cache.json",
		},
		Auth: AuthConfig{
			TokenTTLHours: 24,
		},
		Features: FeatureConfig{
			TradingEnabled: false,
			VersusEnabled:  false,
		},
		Notify: NotifyConfig{
			Events: []string{"versus_congelado", "versus_transferido", "versus_error", "agent_recovery"},
		},
		Export: ExportConfig{
			Enabled: false,
			Region:  "us-east-1",
			Prefix:  "exports",
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if len(c.Agents) == 0 {
		errs = append(errs, "agents: at least one agent must be configured")
	}
	seen := make(map[string]bool, len(c.Agents))
	for i, a := range c.Agents {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, fmt.Sprintf("agents[%d]: name must not be empty", i))
		} else if seen[a.Name] {
			errs = append(errs, fmt.Sprintf("agents[%d]: duplicate name %q", i, a.Name))
		}
		seen[a.Name] = true
		if u, err := url.Parse(a.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("agents[%d]: url %q is not a valid absolute URL", i, a.URL))
		}
	}

	if c.Cache.TTLSeconds < 1 {
		errs = append(errs, "cache: ttl_seconds must be >= 1")
	}
	if c.Cache.AgentTimeoutSeconds < 1 {
		errs = append(errs, "cache: agent_timeout_seconds must be >= 1")
	}

	if c.Data.PhaseFile == "" || c.Data.VSFile == "" || c.Data.VersusFile == "" || c.Data.TradeHistoryFile == "" {
		errs = append(errs, "data: all store file paths must be set")
	}

	if c.Auth.Secret == "" {
		errs = append(errs, "auth: secret must not be empty")
	}
	if c.Auth.LoginPassword == "" {
		errs = append(errs, "auth: login_password must not be empty")
	}
	if c.Auth.TokenTTLHours < 1 {
		errs = append(errs, "auth: token_ttl_hours must be >= 1")
	}

	// Telegram needs both the token and the chat id.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.Export.Enabled {
		if c.Export.Bucket == "" {
			errs = append(errs, "export: bucket must not be empty when enabled")
		}
		if c.Export.Region == "" {
			errs = append(errs, "export: region must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
