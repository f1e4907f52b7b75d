// Package paginate walks search results backward in time.
//
// Each page after the first is requested with its upper time bound set to
// the created-at timestamp of the last item of the previous page. Failures
// that survive retries end pagination but are not returned as errors: the
// caller gets whatever was collected, with the failure recorded on the
// Collection. Only fatal errors (budget exhausted, host blocking) escape.
package paginate

import (
	"context"
	"fmt"

	"github.com/steveyegge/painradar/internal/progress"
	"github.com/steveyegge/painradar/internal/retry"
	"github.com/steveyegge/painradar/internal/types"
)

// FetchFunc performs one search request
type FetchFunc[T any] func(ctx context.Context, q types.SearchQuery) ([]T, error)

// StampFunc returns an item's created-at epoch (0 when missing)
type StampFunc[T any] func(item T) int64

// StopReason records why a collection ended
type StopReason string

const (
	StopEmptyPage    StopReason = "empty_page"
	StopNoTimestamp  StopReason = "no_timestamp"
	StopMaxPages     StopReason = "max_pages"
	StopLimitReached StopReason = "limit_reached"
	StopFetchError   StopReason = "fetch_error"
)

// Collection is the result of one pagination sequence
type Collection[T any] struct {
	Items []T
	Calls int        // fetches attempted, including a failed one
	Pages int        // non-empty pages received
	Stop  StopReason // why pagination ended
	Err   error      // absorbed non-fatal failure, if any
}

// Failed reports whether pagination ended on an error before collecting anything
func (c Collection[T]) Failed() bool {
	return c.Err != nil && len(c.Items) == 0
}

// Paginator issues bounded sequences of retried fetches
type Paginator[T any] struct {
	executor *retry.Executor
	fetch    FetchFunc[T]
	stamp    StampFunc[T]
	reporter *progress.Reporter
	name     string
}

// New creates a Paginator. name labels log lines and retry errors.
func New[T any](name string, executor *retry.Executor, fetch FetchFunc[T], stamp StampFunc[T], reporter *progress.Reporter) *Paginator[T] {
	return &Paginator[T]{
		executor: executor,
		fetch:    fetch,
		stamp:    stamp,
		reporter: reporter,
		name:     name,
	}
}

// Collect fetches up to maxPages pages starting from base. When limit is
// positive, collection also stops once limit items are held and the result
// is truncated to limit.
func (p *Paginator[T]) Collect(ctx context.Context, base types.SearchQuery, maxPages, limit int) (Collection[T], error) {
	var out Collection[T]
	q := base

	for page := 0; page < maxPages; page++ {
		if page > 0 {
			last := out.Items[len(out.Items)-1]
			q = base.WithCursor(p.stamp(last))
		}

		out.Calls++
		op := fmt.Sprintf("%s page %d", p.name, page+1)
		items, err := retry.Do(ctx, p.executor, op, func(attemptCtx context.Context) ([]T, error) {
			return p.fetch(attemptCtx, q)
		})
		if err != nil {
			if retry.IsFatal(err) || ctx.Err() != nil {
				return out, err
			}
			p.reporter.Warnf("%s: giving up, keeping %d items: %v", op, len(out.Items), err)
			out.Err = err
			out.Stop = StopFetchError
			return out, nil
		}

		if len(items) == 0 {
			out.Stop = StopEmptyPage
			return out, nil
		}
		out.Pages++
		out.Items = append(out.Items, items...)
		p.reporter.Tickf("%s: %d items so far (cursor=%d)", op, len(out.Items), q.Before)

		if limit > 0 && len(out.Items) >= limit {
			out.Items = out.Items[:limit]
			out.Stop = StopLimitReached
			return out, nil
		}
		if p.stamp(items[len(items)-1]) <= 0 {
			out.Stop = StopNoTimestamp
			return out, nil
		}
	}

	out.Stop = StopMaxPages
	return out, nil
}
