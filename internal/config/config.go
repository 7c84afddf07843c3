// Package config provides runtime configuration for FabricMon.
// It uses Viper to load settings from files and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for FabricMon.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	ServerPort int    `mapstructure:"server_port"`
	DBPath     string `mapstructure:"db_path"`

	// ── Security ─────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for API tokens.
	JWTSecret string `mapstructure:"jwt_secret"`
	// SecretKey: passphrase the credential box derives its sealing key from.
	// Change both in production — defaults are placeholders.
	SecretKey string `mapstructure:"secret_key"`
	AdminUser string `mapstructure:"admin_user"`
	AdminPass string `mapstructure:"admin_pass"`

	// ── Poller ───────────────────────────────────────────────────────────────
	PollerEnabled     bool `mapstructure:"poller_enabled"`
	PollerTickSeconds int  `mapstructure:"poller_tick_seconds"`

	// ── Location directory (optional) ────────────────────────────────────────
	// When NautobotURL is empty, location enrichment is skipped silently.
	NautobotURL   string `mapstructure:"nautobot_url"`
	NautobotToken string `mapstructure:"nautobot_token"`

	// ── Logging ──────────────────────────────────────────────────────────────
	LogLevel string `mapstructure:"log_level"`
}

// Load reads config from file (./config.yaml or ~/.fabricmon/config.yaml)
// and falls back to defaults. Environment variables with prefix PULSE_
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	// --- Defaults ---
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 8080)
	v.SetDefault("db_path", "fabricmon.db")

	v.SetDefault("jwt_secret", "fabricmon-dev-signing-key")
	v.SetDefault("secret_key", "fabricmon-dev-secret-key")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("poller_enabled", true)
	v.SetDefault("poller_tick_seconds", 30)

	v.SetDefault("nautobot_url", "")
	v.SetDefault("nautobot_token", "")

	v.SetDefault("log_level", "info")

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.fabricmon")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- Environment variables ---
	v.SetEnvPrefix("PULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
