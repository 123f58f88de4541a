package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"stadtwache/internal/logging"
)

// Location provider selection.
const (
	ProviderFixed   = "fixed"
	ProviderCommand = "command"
	ProviderOff     = "off"
)

// Config is the device-local configuration. Missing file or missing fields
// fall back to defaults; a handful of environment variables override the
// file for deployment and CI.
type Config struct {
	ServerURL string `json:"server_url"`
	DataDir   string `json:"data_dir"`
	Theme     string `json:"theme"`

	RequestTimeoutSec  int `json:"request_timeout_sec"`
	SendTimeoutSec     int `json:"send_timeout_sec"`
	LocationTimeoutSec int `json:"location_timeout_sec"`

	LocationProvider string  `json:"location_provider"`
	LocationCommand  string  `json:"location_command"`
	FixedLatitude    float64 `json:"fixed_latitude"`
	FixedLongitude   float64 `json:"fixed_longitude"`
	FixedAccuracy    float64 `json:"fixed_accuracy"`

	QueueFlushSchedule string `json:"queue_flush_schedule"`

	Log logging.Config `json:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := ".stadtwache"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".stadtwache")
	}
	return Config{
		ServerURL:          "http://localhost:8001",
		DataDir:            dataDir,
		Theme:              "dark",
		RequestTimeoutSec:  10,
		SendTimeoutSec:     8,
		LocationTimeoutSec: 10,
		LocationProvider:   ProviderOff,
		QueueFlushSchedule: "@every 1m",
		Log:                logging.Config{Level: "info"},
	}
}

// DefaultPath is the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(Default().DataDir, "config.json")
}

// Load reads the config file at path, fills defaults for anything missing
// and applies environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("open config %s: %w", path, err)
	}
	cfg.applyEnv()
	if cfg.RequestTimeoutSec <= 0 {
		cfg.RequestTimeoutSec = Default().RequestTimeoutSec
	}
	if cfg.SendTimeoutSec <= 0 {
		cfg.SendTimeoutSec = Default().SendTimeoutSec
	}
	if cfg.LocationTimeoutSec <= 0 {
		cfg.LocationTimeoutSec = Default().LocationTimeoutSec
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("STADTWACHE_SERVER"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("STADTWACHE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("STADTWACHE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STADTWACHE_SEND_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.SendTimeoutSec = n
		}
	}
}

// Save writes the config back to path, creating the directory if needed.
// Used by the CLI to persist preferences such as the theme.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// QueuePath returns the offline alert queue database location.
func (c Config) QueuePath() string {
	return filepath.Join(c.DataDir, "alert-queue.db")
}
