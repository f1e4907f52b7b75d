// Package pipeline implements the discover, scan and deep-dive stages.
//
// Stages issue their requests strictly one after another through a single
// retry executor, which in turn waits on the run's rate governor. Failures
// of individual queries or posts are logged and skipped; only fatal errors
// (request budget exhausted, host blocking us) abort a stage.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/steveyegge/painradar/internal/paginate"
	"github.com/steveyegge/painradar/internal/progress"
	"github.com/steveyegge/painradar/internal/ratelimit"
	"github.com/steveyegge/painradar/internal/retry"
	"github.com/steveyegge/painradar/internal/signals"
	"github.com/steveyegge/painradar/internal/types"
)

// Source is the upstream search API
type Source interface {
	SearchSubmissions(ctx context.Context, q types.SearchQuery) ([]types.Post, error)
	SearchComments(ctx context.Context, q types.SearchQuery) ([]types.Comment, error)
}

// Runner executes pipeline stages for one invocation. It must not be shared
// between concurrent runs because it owns the run's rate governor.
type Runner struct {
	source   Source
	governor *ratelimit.Governor
	executor *retry.Executor
	reporter *progress.Reporter
	scorer   *signals.Scorer
	analyzer *signals.CommentAnalyzer
	posts    *paginate.Paginator[types.Post]
	comments *paginate.Paginator[types.Comment]
	now      func() time.Time
}

// Option customizes a Runner
type Option func(*Runner)

// WithLexicon replaces the keyword lists used for scoring and analysis
func WithLexicon(lex signals.Lexicon) Option {
	return func(r *Runner) {
		r.scorer = signals.NewScorer(lex)
		r.analyzer = signals.NewCommentAnalyzer(lex)
	}
}

// WithClock sets the clock used to compute scan time windows
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner wires a Runner. The executor must have been built around the
// same governor so api_calls reflects every request made.
func NewRunner(source Source, governor *ratelimit.Governor, executor *retry.Executor, reporter *progress.Reporter, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, errors.New("source is required")
	}
	if governor == nil {
		return nil, errors.New("governor is required")
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}

	lex := signals.DefaultLexicon()
	r := &Runner{
		source:   source,
		governor: governor,
		executor: executor,
		reporter: reporter,
		scorer:   signals.NewScorer(lex),
		analyzer: signals.NewCommentAnalyzer(lex),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.posts = paginate.New[types.Post]("submissions", executor, source.SearchSubmissions, postStamp, reporter)
	r.comments = paginate.New[types.Comment]("comments", executor, source.SearchComments, commentStamp, reporter)
	return r, nil
}

// APICalls returns the number of requests issued so far in this run
func (r *Runner) APICalls() int {
	return r.governor.Total()
}

func postStamp(p types.Post) int64       { return int64(p.CreatedUTC) }
func commentStamp(c types.Comment) int64 { return int64(c.CreatedUTC) }
