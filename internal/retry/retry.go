// Package retry wraps single API calls with class-aware retries and
// exponential backoff. Every attempt is paced by the run's rate governor.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/steveyegge/painradar/internal/progress"
	"github.com/steveyegge/painradar/internal/ratelimit"
)

// Config holds retry configuration for API calls
type Config struct {
	RateLimitedRetries int           // retries after a 429 (default: 5)
	ServerErrorRetries int           // retries after a 5xx (default: 3)
	TimeoutRetries     int           // retries after a timeout (default: 1)
	OtherRetries       int           // retries after any other failure (default: 1)
	InitialBackoff     time.Duration // backoff before the first retry (default: 2s)
	BackoffMultiplier  float64       // growth per retry (default: 2.0)
	Timeout            time.Duration // per-attempt timeout (default: 15s)
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() Config {
	return Config{
		RateLimitedRetries: 5,
		ServerErrorRetries: 3,
		TimeoutRetries:     1,
		OtherRetries:       1,
		InitialBackoff:     2 * time.Second,
		BackoffMultiplier:  2.0,
		Timeout:            15 * time.Second,
	}
}

// Validate checks that the configuration has usable values
func (c Config) Validate() error {
	if c.RateLimitedRetries < 0 || c.ServerErrorRetries < 0 || c.TimeoutRetries < 0 || c.OtherRetries < 0 {
		return fmt.Errorf("retry budgets must be non-negative")
	}
	if c.InitialBackoff < 0 {
		return fmt.Errorf("initial_backoff must be non-negative, got %v", c.InitialBackoff)
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1, got %.2f", c.BackoffMultiplier)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Budget returns how many retries a failure class allows
func (c Config) Budget(class FailureClass) int {
	switch class {
	case ClassRateLimited:
		return c.RateLimitedRetries
	case ClassServerError:
		return c.ServerErrorRetries
	case ClassTimeout:
		return c.TimeoutRetries
	case ClassOther:
		return c.OtherRetries
	default:
		return 0
	}
}

// Backoff returns the delay before retry number n (0-based)
func (c Config) Backoff(n int) time.Duration {
	return time.Duration(float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(n)))
}

// Waiter paces requests; *ratelimit.Governor implements it
type Waiter interface {
	Wait(ctx context.Context) error
}

// Error is returned when an operation fails for good
type Error struct {
	Op       string
	Class    FailureClass
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s) [%s]: %v", e.Op, e.Attempts, e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Executor runs operations with retries
type Executor struct {
	config   Config
	governor Waiter
	reporter *progress.Reporter
	sleep    func(context.Context, time.Duration) error
}

// Option customizes an Executor
type Option func(*Executor)

// WithSleep replaces the backoff sleep function
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(e *Executor) { e.sleep = sleep }
}

// WithReporter sets where retry notices are logged
func WithReporter(r *progress.Reporter) Option {
	return func(e *Executor) { e.reporter = r }
}

// New creates an Executor bound to the run's governor
func New(cfg Config, governor Waiter, opts ...Option) (*Executor, error) {
	if governor == nil {
		return nil, errors.New("governor is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	e := &Executor{
		config:   cfg,
		governor: governor,
		sleep:    ratelimit.SleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute runs fn until it succeeds, fails fatally, or exhausts the retry
// budget of its failure class. Each class draws on its own budget; the
// backoff exponent counts every retry. fn receives a context bounded by
// the per-attempt timeout.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error) error {
	used := make(map[FailureClass]int)
	for attempt := 0; ; attempt++ {
		// Governor errors are either budget exhaustion or cancellation; neither is retried
		if err := e.governor.Wait(ctx); err != nil {
			return fmt.Errorf("%s: %w", operation, err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			if attempt > 0 {
				e.reporter.Infof("%s succeeded after %d retries", operation, attempt)
			}
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%s: context canceled: %w", operation, ctx.Err())
		}

		class := Classify(err)
		failure := &Error{Op: operation, Class: class, Attempts: attempt + 1, Err: err}

		if class == ClassForbidden {
			e.reporter.Errorf("%s blocked by host (403), aborting", operation)
			return failure
		}
		budget := e.config.Budget(class)
		if used[class] >= budget {
			return failure
		}
		used[class]++

		delay := e.config.Backoff(attempt)
		e.reporter.Warnf("%s failed [%s] (retry %d/%d), retrying in %v: %v",
			operation, class, used[class], budget, delay, err)

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: context canceled during backoff: %w", operation, err)
		}
	}
}

// Do is Execute for operations that produce a value
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := e.Execute(ctx, operation, func(attemptCtx context.Context) error {
		v, err := fn(attemptCtx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
