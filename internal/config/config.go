// Package config resolves run configuration from built-in defaults and an
// optional YAML file. Nothing is read from the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/painradar/internal/ratelimit"
	"github.com/steveyegge/painradar/internal/retry"
	"github.com/steveyegge/painradar/internal/search"
)

// Config is the resolved configuration for one invocation
type Config struct {
	API       search.Options
	RateLimit ratelimit.Config
	Retry     retry.Config
	Stages    StageDefaults
}

// StageDefaults are the values used for stage flags left unset on the command line
type StageDefaults struct {
	DiscoverLimit   int
	ScanDays        int
	ScanMinScore    int
	ScanMinComments int
	ScanLimit       int
	ScanPages       int
	DeepDiveTop     int
	MaxComments     int
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		API:       search.DefaultOptions(),
		RateLimit: ratelimit.DefaultConfig(),
		Retry:     retry.DefaultConfig(),
		Stages: StageDefaults{
			DiscoverLimit:   10,
			ScanDays:        365,
			ScanMinScore:    1,
			ScanMinComments: 3,
			ScanLimit:       30,
			ScanPages:       2,
			DeepDiveTop:     10,
			MaxComments:     200,
		},
	}
}

// Validate checks every section
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", c.API.Timeout)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	s := c.Stages
	positives := []struct {
		name  string
		value int
	}{
		{"discover.limit", s.DiscoverLimit},
		{"scan.days", s.ScanDays},
		{"scan.limit", s.ScanLimit},
		{"scan.pages", s.ScanPages},
		{"deep_dive.top", s.DeepDiveTop},
		{"deep_dive.max_comments", s.MaxComments},
	}
	for _, p := range positives {
		if p.value < 1 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}
	if s.ScanMinScore < 0 || s.ScanMinComments < 0 {
		return errors.New("scan.min_score and scan.min_comments must be non-negative")
	}
	return nil
}

// ConfigFile is the YAML layout of a --config file. Unset fields keep
// their defaults; durations are Go duration strings ("1s", "150ms").
type ConfigFile struct {
	API       APIFile       `yaml:"api"`
	RateLimit RateLimitFile `yaml:"rate_limit"`
	Retry     RetryFile     `yaml:"retry"`
	Discover  DiscoverFile  `yaml:"discover"`
	Scan      ScanFile      `yaml:"scan"`
	DeepDive  DeepDiveFile  `yaml:"deep_dive"`
}

// APIFile configures the upstream search API
type APIFile struct {
	BaseURL      string `yaml:"base_url"`
	UserAgent    string `yaml:"user_agent"`
	Timeout      string `yaml:"timeout"`
	SizeCapBytes int64  `yaml:"size_cap_bytes"`
}

// RateLimitFile configures request pacing
type RateLimitFile struct {
	MaxPerRun    int    `yaml:"max_per_run"`
	MaxPerMinute int    `yaml:"max_per_minute"`
	Window       string `yaml:"window"`
	WindowBuffer string `yaml:"window_buffer"`
	MinDelay     string `yaml:"min_delay"`
	MaxJitter    string `yaml:"max_jitter"`
}

// RetryFile configures retry budgets. Budgets are pointers because zero
// (never retry) is a meaningful setting.
type RetryFile struct {
	RateLimited       *int    `yaml:"rate_limited"`
	ServerError       *int    `yaml:"server_error"`
	Timeout           *int    `yaml:"timeout"`
	Other             *int    `yaml:"other"`
	InitialBackoff    string  `yaml:"initial_backoff"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	AttemptTimeout    string  `yaml:"attempt_timeout"`
}

// DiscoverFile holds discover defaults
type DiscoverFile struct {
	Limit int `yaml:"limit"`
}

// ScanFile holds scan defaults
type ScanFile struct {
	Days        int  `yaml:"days"`
	MinScore    *int `yaml:"min_score"`
	MinComments *int `yaml:"min_comments"`
	Limit       int  `yaml:"limit"`
	Pages       int  `yaml:"pages"`
}

// DeepDiveFile holds deep-dive defaults
type DeepDiveFile struct {
	Top         int `yaml:"top"`
	MaxComments int `yaml:"max_comments"`
}

// Load reads a config file. An empty path yields the defaults; a named file
// that does not exist is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data, rejecting unknown keys
func Parse(data []byte) (*Config, error) {
	var cf ConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg, err := cf.ToConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ToConfig applies the file's settings over the defaults
func (cf *ConfigFile) ToConfig() (*Config, error) {
	cfg := Default()

	// API
	if cf.API.BaseURL != "" {
		cfg.API.BaseURL = cf.API.BaseURL
	}
	if cf.API.UserAgent != "" {
		cfg.API.UserAgent = cf.API.UserAgent
	}
	if cf.API.SizeCapBytes > 0 {
		cfg.API.SizeCap = cf.API.SizeCapBytes
	}

	// Rate limit
	if cf.RateLimit.MaxPerRun > 0 {
		cfg.RateLimit.MaxPerRun = cf.RateLimit.MaxPerRun
	}
	if cf.RateLimit.MaxPerMinute > 0 {
		cfg.RateLimit.MaxPerMinute = cf.RateLimit.MaxPerMinute
	}

	// Retry
	setInt(&cfg.Retry.RateLimitedRetries, cf.Retry.RateLimited)
	setInt(&cfg.Retry.ServerErrorRetries, cf.Retry.ServerError)
	setInt(&cfg.Retry.TimeoutRetries, cf.Retry.Timeout)
	setInt(&cfg.Retry.OtherRetries, cf.Retry.Other)
	if cf.Retry.BackoffMultiplier > 0 {
		cfg.Retry.BackoffMultiplier = cf.Retry.BackoffMultiplier
	}

	durations := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"api.timeout", cf.API.Timeout, &cfg.API.Timeout},
		{"rate_limit.window", cf.RateLimit.Window, &cfg.RateLimit.Window},
		{"rate_limit.window_buffer", cf.RateLimit.WindowBuffer, &cfg.RateLimit.WindowBuffer},
		{"rate_limit.min_delay", cf.RateLimit.MinDelay, &cfg.RateLimit.MinDelay},
		{"rate_limit.max_jitter", cf.RateLimit.MaxJitter, &cfg.RateLimit.MaxJitter},
		{"retry.initial_backoff", cf.Retry.InitialBackoff, &cfg.Retry.InitialBackoff},
		{"retry.attempt_timeout", cf.Retry.AttemptTimeout, &cfg.Retry.Timeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.field, err)
		}
		*d.dst = v
	}

	// Stage defaults
	setPositive(&cfg.Stages.DiscoverLimit, cf.Discover.Limit)
	setPositive(&cfg.Stages.ScanDays, cf.Scan.Days)
	setInt(&cfg.Stages.ScanMinScore, cf.Scan.MinScore)
	setInt(&cfg.Stages.ScanMinComments, cf.Scan.MinComments)
	setPositive(&cfg.Stages.ScanLimit, cf.Scan.Limit)
	setPositive(&cfg.Stages.ScanPages, cf.Scan.Pages)
	setPositive(&cfg.Stages.DeepDiveTop, cf.DeepDive.Top)
	setPositive(&cfg.Stages.MaxComments, cf.DeepDive.MaxComments)

	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setPositive(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
