// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers .env, an optional YAML file and DUOFEED_* env vars on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
)

// Source kinds accepted by the source field.
const (
	SourceMemory   = "memory"
	SourceSQLite   = "sqlite"
	SourceUpstream = "upstream"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Source selects where prefiltered listings come from.
	Source string `koanf:"source"`

	SQLiteDSN string `koanf:"sqlite_dsn"`

	UpstreamBaseURL   string  `koanf:"upstream_base_url"`
	UpstreamTimeoutMS int     `koanf:"upstream_timeout_ms"`
	UpstreamRatePerS  float64 `koanf:"upstream_rate_per_sec"`
	UpstreamBurst     int     `koanf:"upstream_burst"`

	// PageSize is the pagination step used by sessions and /feed.
	PageSize int `koanf:"page_size"`

	// MaxFeedVisible caps GET /feed?visible.
	MaxFeedVisible int `koanf:"max_feed_visible"`

	MaxSessions       int `koanf:"max_sessions"`
	SessionIdleTTLSec int `koanf:"session_idle_ttl_sec"`

	// EventQueueSize bounds the ingest queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the set of remembered ingest event ids.
	DedupeSize int `koanf:"dedupe_size"`

	// AdFrequency injects an ad slot after every AdFrequency-th post.
	AdFrequency int `koanf:"ad_frequency"`

	Ads []AdConfig `koanf:"ads"`

	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// AdConfig describes one configured ad.
type AdConfig struct {
	ID            string   `koanf:"id"`
	Title         string   `koanf:"title"`
	ImageURL      string   `koanf:"image_url"`
	LinkURL       string   `koanf:"link_url"`
	TargetRegions []string `koanf:"target_regions"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":9080",
		Source:             SourceMemory,
		SQLiteDSN:          "file:duofeed.db?_pragma=busy_timeout(5000)",
		UpstreamTimeoutMS:  5000,
		UpstreamRatePerS:   5,
		UpstreamBurst:      5,
		PageSize:           25,
		MaxFeedVisible:     500,
		MaxSessions:        10_000,
		SessionIdleTTLSec:  1800,
		EventQueueSize:     10_000,
		WorkerCount:        runtime.NumCPU(),
		DedupeSize:         100_000,
		AdFrequency:        5,
		CORSAllowedOrigins: []string{"*"},
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Source) {
	case SourceMemory, SourceSQLite:
	case SourceUpstream:
		if c.UpstreamBaseURL == "" {
			return fmt.Errorf("%w: upstream_base_url is required for source %q", ErrInvalidConfig, c.Source)
		}
		if c.UpstreamRatePerS <= 0 || c.UpstreamBurst <= 0 {
			return fmt.Errorf("%w: upstream rate and burst must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("%w: page_size must be positive", ErrInvalidConfig)
	}
	if c.MaxFeedVisible < c.PageSize {
		return fmt.Errorf("%w: max_feed_visible must be at least page_size", ErrInvalidConfig)
	}
	if c.MaxSessions <= 0 || c.SessionIdleTTLSec <= 0 {
		return fmt.Errorf("%w: max_sessions and session_idle_ttl_sec must be positive", ErrInvalidConfig)
	}
	if c.EventQueueSize <= 0 || c.WorkerCount <= 0 || c.DedupeSize <= 0 {
		return fmt.Errorf("%w: queue_size, worker_count and dedupe_size must be positive", ErrInvalidConfig)
	}
	if c.AdFrequency < 0 {
		return fmt.Errorf("%w: ad_frequency must not be negative", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(c.Ads))
	for i, ad := range c.Ads {
		if ad.ID == "" {
			return fmt.Errorf("%w: ads[%d] has no id", ErrInvalidConfig, i)
		}
		if _, dup := seen[ad.ID]; dup {
			return fmt.Errorf("%w: duplicate ad id %q", ErrInvalidConfig, ad.ID)
		}
		seen[ad.ID] = struct{}{}
	}
	return nil
}
