package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveyegge/painradar/internal/config"
	"github.com/steveyegge/painradar/internal/pipeline"
)

func newScanCmd(g *globalOptions) *cobra.Command {
	var (
		opts       pipeline.ScanOptions
		subreddits []string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Search communities for pain signals and rank posts",
		Long: `Search communities for frustration, desire and cost complaints and
return the highest scoring posts.

Each community is searched with a fixed set of pain queries, plus three
domain-specific queries when --domain is given. With a domain, posts that
mention it get a bonus and posts that don't are penalized.

The output can be piped into deep-dive:
  painradar scan --subreddits freelance,smallbusiness --domain invoicing | painradar deep-dive --stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, g, func(ctx context.Context, s *session) (any, error) {
				o := opts
				o.Subreddits = pipeline.NormalizeSubreddits(subreddits)
				if len(o.Subreddits) == 0 {
					return nil, usageErrorf("--subreddits is required")
				}
				d := s.cfg.Stages
				o.Days = intFlag(cmd, "days", opts.Days, d.ScanDays)
				o.MinScore = intFlag(cmd, "minScore", opts.MinScore, d.ScanMinScore)
				o.MinComments = intFlag(cmd, "minComments", opts.MinComments, d.ScanMinComments)
				o.Limit = intFlag(cmd, "limit", opts.Limit, d.ScanLimit)
				o.Pages = intFlag(cmd, "pages", opts.Pages, d.ScanPages)
				if err := o.Validate(); err != nil {
					return nil, usageErrorf("%v", err)
				}
				return s.runner.Scan(ctx, o)
			})
		},
	}

	defaults := config.Default().Stages
	f := cmd.Flags()
	f.StringSliceVar(&subreddits, "subreddits", nil, "Comma-separated communities to scan (required)")
	f.StringVar(&opts.Domain, "domain", "", "Domain phrase used for extra queries and relevance scoring")
	f.IntVar(&opts.Days, "days", defaults.ScanDays, "Only consider posts from the last N days")
	f.IntVar(&opts.MinScore, "minScore", defaults.ScanMinScore, "Minimum post score")
	f.IntVar(&opts.MinComments, "minComments", defaults.ScanMinComments, "Minimum comment count")
	f.IntVar(&opts.Limit, "limit", defaults.ScanLimit, "Number of posts to return")
	f.IntVar(&opts.Pages, "pages", defaults.ScanPages, "Pages to fetch per query")
	return cmd
}
