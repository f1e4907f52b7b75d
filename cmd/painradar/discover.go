package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/painradar/internal/config"
)

func newDiscoverCmd(g *globalOptions) *cobra.Command {
	var (
		domain string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find communities where a domain is discussed",
		Long: `Find the communities where a domain is discussed and rank them.

A few exact-phrase searches tally which communities mention the domain; the
top candidates are then probed with generic pain queries. The score is
2 x seed hits + pain hits.

Examples:
  painradar discover --domain "invoicing"
  painradar discover --domain "meal planning" --limit 5 --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, g, func(ctx context.Context, s *session) (any, error) {
				if strings.TrimSpace(domain) == "" {
					return nil, usageErrorf("--domain is required")
				}
				return s.runner.Discover(ctx, domain, intFlag(cmd, "limit", limit, s.cfg.Stages.DiscoverLimit))
			})
		},
	}

	defaults := config.Default().Stages
	cmd.Flags().StringVar(&domain, "domain", "", "Domain phrase to look for (required)")
	cmd.Flags().IntVar(&limit, "limit", defaults.DiscoverLimit, "Number of communities to return")
	return cmd
}
