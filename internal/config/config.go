package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
	UI      UIConfig      `mapstructure:"ui"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// APIConfig points the client at the receipts backend.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StorageConfig holds the local sqlite store that keeps the session token.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat     string `mapstructure:"date_format"`
	CurrencySymbol string `mapstructure:"currency_symbol"`
	Timezone       string `mapstructure:"timezone"`
}

// MetricsConfig enables the /metrics endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Location resolves the configured timezone, falling back to local time.
func (u UIConfig) Location() *time.Location {
	if u.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func dataDir() string {
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "receiptdesk")
}

// Path is the config file Load reads and Save writes.
func Path() string {
	if p := os.Getenv("RECEIPTDESK_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "receiptdesk", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix RECEIPTDESK_.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("storage.path", filepath.Join(dataDir(), "receiptdesk.db"))
	v.SetDefault("log.path", filepath.Join(dataDir(), "receiptdesk.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("ui.date_format", "02 Jan 2006")
	v.SetDefault("ui.currency_symbol", "฿")
	v.SetDefault("ui.timezone", "")
	v.SetDefault("metrics.listen", "")

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("RECEIPTDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(Path()); statErr == nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = 10 * time.Second
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// Nothing secret lives in the config; the session token is kept in the local store.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("ui.currency_symbol", cfg.UI.CurrencySymbol)
	v.Set("ui.timezone", cfg.UI.Timezone)
	v.Set("metrics.listen", cfg.Metrics.Listen)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
