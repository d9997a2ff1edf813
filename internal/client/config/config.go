// Package config loads runtime configuration for the client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags, which override earlier values.
package config

import "time"

// Config holds runtime settings for the client.
type Config struct {
	// RemoteBaseURL is the base URL of the shared REST endpoint.
	RemoteBaseURL string
	// DataDir holds the SQLite database and the durable key-value store.
	DataDir string
	// PollInterval is how often local tables are checked for changes.
	PollInterval time.Duration
	// CleanupInterval is how often expired pins are swept.
	CleanupInterval time.Duration
	// OnlineCheckInterval is how often endpoint reachability is probed.
	OnlineCheckInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RemoteBaseURL = "http://127.0.0.1:8080"
	c.DataDir = "./data"
	c.PollInterval = 2 * time.Second
	c.CleanupInterval = 5 * time.Minute
	c.OnlineCheckInterval = 3 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
