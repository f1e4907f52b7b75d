package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/steveyegge/painradar/internal/config"
	"github.com/steveyegge/painradar/internal/pipeline"
	"github.com/steveyegge/painradar/internal/progress"
	"github.com/steveyegge/painradar/internal/ratelimit"
	"github.com/steveyegge/painradar/internal/retry"
	"github.com/steveyegge/painradar/internal/search"
)

// session is everything one invocation needs. Each invocation gets its own
// governor, so request budgets never carry over between runs.
type session struct {
	cfg      *config.Config
	reporter *progress.Reporter
	runner   *pipeline.Runner
}

func newSession(cmd *cobra.Command, g *globalOptions) (*session, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	if f, ok := stderr.(*os.File); ok {
		progress.ConfigureColor(f, g.noColor)
	} else {
		color.NoColor = true
	}
	reporter := progress.New(stderr, uuid.New().String()[:8], g.verbose)

	governor, err := ratelimit.New(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("creating rate governor: %w", err)
	}
	executor, err := retry.New(cfg.Retry, governor, retry.WithReporter(reporter))
	if err != nil {
		return nil, fmt.Errorf("creating retry executor: %w", err)
	}
	client, err := search.NewClient(cfg.API)
	if err != nil {
		return nil, fmt.Errorf("creating search client: %w", err)
	}
	runner, err := pipeline.NewRunner(client, governor, executor, reporter)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	reporter.Debugf("config: base=%s max_per_run=%d max_per_minute=%d",
		cfg.API.BaseURL, cfg.RateLimit.MaxPerRun, cfg.RateLimit.MaxPerMinute)
	return &session{cfg: cfg, reporter: reporter, runner: runner}, nil
}

// stageFunc runs one pipeline stage and returns the envelope's data
type stageFunc func(ctx context.Context, s *session) (any, error)

// runStage builds a session, runs stage and writes exactly one envelope to
// stdout. Failures return errReported so main exits non-zero without
// printing a second document.
func runStage(cmd *cobra.Command, g *globalOptions, stage stageFunc) error {
	out := cmd.OutOrStdout()

	s, err := newSession(cmd, g)
	if err != nil {
		_ = writeEnvelope(out, failure(err, nil), g.pretty)
		return errReported
	}

	data, err := stage(cmd.Context(), s)
	if err != nil {
		s.reporter.Errorf("%v", err)
		_ = writeEnvelope(out, failure(err, s.runner), g.pretty)
		return errReported
	}

	s.reporter.Infof("done, %d api calls", s.runner.APICalls())
	if err := writeEnvelope(out, success(data), g.pretty); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// intFlag returns the flag value when it was given, otherwise the configured default
func intFlag(cmd *cobra.Command, name string, value, configured int) int {
	if cmd.Flags().Changed(name) {
		return value
	}
	return configured
}
