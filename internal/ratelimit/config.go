package ratelimit

import (
	"fmt"
	"time"
)

// Config holds request pacing limits for one run
type Config struct {
	// MaxPerRun is the hard cap on requests issued by a single invocation
	// Default: 300
	MaxPerRun int `json:"max_per_run"`

	// MaxPerMinute caps requests inside any trailing Window
	// Default: 30
	MaxPerMinute int `json:"max_per_minute"`

	// Window is the sliding window length
	// Default: 60s
	Window time.Duration `json:"window"`

	// WindowBuffer is added when sleeping for the oldest request to leave the window
	// Default: 100ms
	WindowBuffer time.Duration `json:"window_buffer"`

	// MinDelay is the minimum spacing between consecutive requests
	// Default: 1s
	MinDelay time.Duration `json:"min_delay"`

	// MaxJitter bounds the random extra spacing, drawn from [0, MaxJitter)
	// Default: 200ms
	MaxJitter time.Duration `json:"max_jitter"`
}

// DefaultConfig returns the default pacing configuration
func DefaultConfig() Config {
	return Config{
		MaxPerRun:    300,
		MaxPerMinute: 30,
		Window:       time.Minute,
		WindowBuffer: 100 * time.Millisecond,
		MinDelay:     time.Second,
		MaxJitter:    200 * time.Millisecond,
	}
}

// Validate checks that the configuration has usable values
func (c Config) Validate() error {
	if c.MaxPerRun <= 0 {
		return fmt.Errorf("max_per_run must be positive, got %d", c.MaxPerRun)
	}
	if c.MaxPerMinute <= 0 {
		return fmt.Errorf("max_per_minute must be positive, got %d", c.MaxPerMinute)
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive, got %v", c.Window)
	}
	if c.WindowBuffer < 0 {
		return fmt.Errorf("window_buffer must be non-negative, got %v", c.WindowBuffer)
	}
	if c.MinDelay < 0 {
		return fmt.Errorf("min_delay must be non-negative, got %v", c.MinDelay)
	}
	if c.MaxJitter < 0 {
		return fmt.Errorf("max_jitter must be non-negative, got %v", c.MaxJitter)
	}
	return nil
}
