package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/painradar/internal/ratelimit"
)

type statusErr int

func (s statusErr) Error() string   { return fmt.Sprintf("http status %d", int(s)) }
func (s statusErr) StatusCode() int { return int(s) }

// countingWaiter records Wait calls and can refuse after a limit
type countingWaiter struct {
	calls int
	limit int
}

func (w *countingWaiter) Wait(ctx context.Context) error {
	if w.limit > 0 && w.calls >= w.limit {
		return fmt.Errorf("%w: test limit", ratelimit.ErrBudgetExceeded)
	}
	w.calls++
	return ctx.Err()
}

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) Sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestExecutor(t *testing.T, w Waiter) (*Executor, *recordedSleeps) {
	t.Helper()
	sleeps := &recordedSleeps{}
	e, err := New(DefaultConfig(), w, WithSleep(sleeps.Sleep))
	require.NoError(t, err)
	return e, sleeps
}

// failNTimes returns an operation that fails with err the first n calls
func failNTimes(n int, err error, calls *int) func(context.Context) error {
	return func(context.Context) error {
		*calls++
		if *calls <= n {
			return err
		}
		return nil
	}
}

func TestExecute_RateLimitedBudget(t *testing.T) {
	for k := 0; k <= 7; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			w := &countingWaiter{}
			e, _ := newTestExecutor(t, w)
			calls := 0
			err := e.Execute(context.Background(), "search", failNTimes(k, statusErr(429), &calls))
			if k <= 5 {
				assert.NoError(t, err)
				assert.Equal(t, k+1, calls)
			} else {
				require.Error(t, err)
				var rerr *Error
				require.True(t, errors.As(err, &rerr))
				assert.Equal(t, ClassRateLimited, rerr.Class)
				assert.Equal(t, 6, rerr.Attempts)
				assert.Equal(t, 6, calls)
			}
			assert.Equal(t, calls, w.calls, "governor consulted before every attempt")
		})
	}
}

func TestExecute_ForbiddenIsImmediate(t *testing.T) {
	w := &countingWaiter{}
	e, sleeps := newTestExecutor(t, w)
	calls := 0
	err := e.Execute(context.Background(), "search", failNTimes(10, statusErr(403), &calls))

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeps.delays)
	assert.True(t, IsFatal(err))
}

func TestExecute_BackoffIsExponential(t *testing.T) {
	e, sleeps := newTestExecutor(t, &countingWaiter{})
	calls := 0
	err := e.Execute(context.Background(), "search", failNTimes(3, statusErr(503), &calls))

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}, sleeps.delays)
}

func TestExecute_ClassBudgets(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
	}{
		{name: "server error", err: statusErr(500), wantCalls: 4},
		{name: "timeout", err: context.DeadlineExceeded, wantCalls: 2},
		{name: "network", err: errors.New("connection reset by peer"), wantCalls: 2},
		{name: "not found", err: statusErr(404), wantCalls: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestExecutor(t, &countingWaiter{})
			calls := 0
			err := e.Execute(context.Background(), "search", failNTimes(100, tt.err, &calls))
			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.False(t, IsFatal(err))
		})
	}
}

func TestExecute_ClassBudgetsAreIndependent(t *testing.T) {
	e, sleeps := newTestExecutor(t, &countingWaiter{})
	calls := 0
	// five 429s exhaust the rate-limit budget, then three 500s use the server budget
	err := e.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		switch {
		case calls <= 5:
			return statusErr(429)
		case calls <= 8:
			return statusErr(500)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 9, calls)
	assert.Len(t, sleeps.delays, 8)
	assert.Equal(t, 2*time.Second, sleeps.delays[0])
}

func TestExecute_MixedClassesExhaustEach(t *testing.T) {
	e, _ := newTestExecutor(t, &countingWaiter{})
	calls := 0
	err := e.Execute(context.Background(), "search", func(context.Context) error {
		calls++
		if calls <= 5 {
			return statusErr(429)
		}
		return statusErr(500)
	})

	var failure *Error
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, ClassServerError, failure.Class)
	// 1 + 5 rate-limited retries + 3 server retries
	assert.Equal(t, 9, calls)
	assert.Equal(t, 9, failure.Attempts)
}

func TestExecute_BudgetExceededStopsBeforeCall(t *testing.T) {
	w := &countingWaiter{limit: 2}
	e, _ := newTestExecutor(t, w)
	calls := 0
	err := e.Execute(context.Background(), "search", failNTimes(100, statusErr(429), &calls))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ratelimit.ErrBudgetExceeded))
	assert.True(t, IsFatal(err))
	assert.Equal(t, 2, calls)
}

func TestExecute_AttemptHasTimeout(t *testing.T) {
	e, _ := newTestExecutor(t, &countingWaiter{})
	err := e.Execute(context.Background(), "search", func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(15*time.Second), deadline, time.Second)
		return nil
	})
	assert.NoError(t, err)
}

func TestExecute_ParentCanceled(t *testing.T) {
	e, _ := newTestExecutor(t, &countingWaiter{})
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := e.Execute(ctx, "search", func(context.Context) error {
		calls++
		cancel()
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ReturnsValue(t *testing.T) {
	e, _ := newTestExecutor(t, &countingWaiter{})
	attempts := 0
	v, err := Do(context.Background(), e, "fetch", func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, statusErr(502)
		}
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureClass
	}{
		{name: "429", err: statusErr(429), want: ClassRateLimited},
		{name: "403", err: statusErr(403), want: ClassForbidden},
		{name: "500", err: statusErr(500), want: ClassServerError},
		{name: "599", err: statusErr(599), want: ClassServerError},
		{name: "404", err: statusErr(404), want: ClassOther},
		{name: "wrapped 429", err: fmt.Errorf("search: %w", statusErr(429)), want: ClassRateLimited},
		{name: "deadline", err: context.DeadlineExceeded, want: ClassTimeout},
		{name: "url timeout", err: &url.Error{Op: "Get", URL: "x", Err: context.DeadlineExceeded}, want: ClassTimeout},
		{name: "generic", err: errors.New("dial tcp: connection refused"), want: ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestFailureClassString(t *testing.T) {
	assert.Equal(t, "rate_limited", ClassRateLimited.String())
	assert.Equal(t, "forbidden", ClassForbidden.String())
	assert.Equal(t, "UNKNOWN(42)", FailureClass(42).String())
}

func TestNew_RequiresGovernor(t *testing.T) {
	_, err := New(DefaultConfig(), nil)
	assert.Error(t, err)
}
