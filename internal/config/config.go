// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	// Server holds local UI listener settings.
	Server Server `yaml:"server"`

	// Backend holds settings for the remote trading API.
	Backend Backend `yaml:"backend"`

	// Storage holds paths for local persistence.
	Storage Storage `yaml:"storage"`

	// Market holds market view settings.
	Market Market `yaml:"market"`

	// Logging configures the application logger.
	Logging Logging `yaml:"logging"`

	// EncryptionSecret is used for encrypting stored credentials.
	// Must be at least 32 characters.
	EncryptionSecret string `yaml:"encryption_secret"`
}

// Server holds network listener configuration for the local UI.
type Server struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Backend holds the remote API endpoint configuration. The base URL is
// deployment-specific (local dev vs hosted) and is never hardcoded.
type Backend struct {
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds each outgoing API call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// RatePerSecond and Burst pace outgoing requests.
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// Storage holds paths for local persistence.
type Storage struct {
	DBPath string `yaml:"db_path"`
}

// Market holds market view settings.
type Market struct {
	// PollInterval is the cadence of snapshot refreshes for an open view.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MessageTTL is how long transient trade/load messages stay visible.
	MessageTTL time.Duration `yaml:"message_ttl"`

	// IdleTimeout is how long an untouched symbol view stays alive before
	// its polling is torn down.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Server: Server{
			Host: "localhost",
			Port: "8080",
		},
		Backend: Backend{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 30 * time.Second,
			RatePerSecond:  5,
			Burst:          10,
		},
		Storage: Storage{
			DBPath: filepath.Join("data", "titan.db"),
		},
		Market: Market{
			PollInterval: 30 * time.Second,
			MessageTTL:   4500 * time.Millisecond,
			IdleTimeout:  5 * time.Minute,
		},
		Logging: Logging{
			Level: "info",
		},
		EncryptionSecret: "change-me-in-production-32chars!",
	}
}

// Load reads the YAML configuration file at path (when path is non-empty
// and the file exists), then applies environment variable overrides on top
// of the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("TITAN_API_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("ENCRYPTION_SECRET"); v != "" {
		cfg.EncryptionSecret = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("POLL_INTERVAL_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Market.PollInterval = time.Duration(secs) * time.Second
		}
	}
}

// Address returns the full address to bind the local UI server to.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}
