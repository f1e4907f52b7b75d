// Package ratelimit paces outgoing API requests for a single run.
//
// A Governor is created once per invocation and handed by pointer to every
// component that issues requests. It is not safe for concurrent callers: the
// pipeline issues requests strictly one at a time so that the accounting
// stays exact.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ErrBudgetExceeded is returned by Wait once the per-run request cap is used up.
// It is fatal for the run.
var ErrBudgetExceeded = errors.New("request budget exceeded")

// Governor enforces per-run and per-window request limits plus minimum spacing
type Governor struct {
	config Config

	window []time.Time // request timestamps inside the trailing window, oldest first
	total  int
	last   time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// Option customizes a Governor
type Option func(*Governor)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// WithSleep replaces the function used to suspend the caller
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(g *Governor) { g.sleep = sleep }
}

// WithJitter replaces the jitter source. fn receives MaxJitter and must
// return a value in [0, max).
func WithJitter(fn func(max time.Duration) time.Duration) Option {
	return func(g *Governor) { g.jitter = fn }
}

// New creates a Governor for one run
func New(cfg Config, opts ...Option) (*Governor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rate limit config: %w", err)
	}
	g := &Governor{
		config: cfg,
		now:    time.Now,
		sleep:  SleepContext,
		jitter: randomJitter,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Wait blocks until the next request may be issued and records it.
// It returns ErrBudgetExceeded when the run cap has been reached, or the
// context error if ctx is canceled while waiting.
func (g *Governor) Wait(ctx context.Context) error {
	if g.total >= g.config.MaxPerRun {
		return fmt.Errorf("%w: %d/%d requests used", ErrBudgetExceeded, g.total, g.config.MaxPerRun)
	}

	g.evict(g.now())

	if len(g.window) >= g.config.MaxPerMinute {
		wait := g.window[0].Add(g.config.Window).Sub(g.now()) + g.config.WindowBuffer
		if wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
		g.evict(g.now())
	}

	if !g.last.IsZero() {
		spacing := g.config.MinDelay
		if g.config.MaxJitter > 0 {
			spacing += g.jitter(g.config.MaxJitter)
		}
		if wait := spacing - g.now().Sub(g.last); wait > 0 {
			if err := g.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	now := g.now()
	g.window = append(g.window, now)
	g.last = now
	g.total++
	return nil
}

// evict drops timestamps that have left the trailing window
func (g *Governor) evict(now time.Time) {
	cutoff := now.Add(-g.config.Window)
	i := 0
	for i < len(g.window) && !g.window[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.window = append(g.window[:0], g.window[i:]...)
	}
}

// Total returns the number of requests recorded so far in this run
func (g *Governor) Total() int {
	return g.total
}

// Remaining returns how many requests the run may still issue
func (g *Governor) Remaining() int {
	if r := g.config.MaxPerRun - g.total; r > 0 {
		return r
	}
	return 0
}

// InWindow returns the number of requests inside the trailing window as of now
func (g *Governor) InWindow() int {
	g.evict(g.now())
	return len(g.window)
}

// SleepContext sleeps for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
