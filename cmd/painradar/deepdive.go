package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/painradar/internal/config"
	"github.com/steveyegge/painradar/internal/pipeline"
)

func newDeepDiveCmd(g *globalOptions) *cobra.Command {
	var (
		posts       []string
		fromScan    string
		useStdin    bool
		top         int
		maxComments int
	)
	cmd := &cobra.Command{
		Use:   "deep-dive",
		Short: "Analyze the comments of selected posts",
		Long: `Fetch the comments of posts and measure how strongly commenters
corroborate them: agreement ratio, validation strength, quotes, solutions
people tried and tools they mention.

Posts come from exactly one source:
  --post <id|url>        one or more post ids, t3_ fullnames or permalinks
  --from-scan <file>     a file holding scan output
  --stdin                scan output (or whitespace-separated ids) on stdin

A post whose comments cannot be fetched is reported with an error field
instead of failing the whole run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, g, func(ctx context.Context, s *session) (any, error) {
				ids, err := collectPostIDs(cmd.InOrStdin(), posts, fromScan, useStdin)
				if err != nil {
					return nil, err
				}
				ids = pipeline.UniquePostIDs(ids)
				n := intFlag(cmd, "top", top, s.cfg.Stages.DeepDiveTop)
				if n < 1 {
					return nil, usageErrorf("--top must be positive, got %d", n)
				}
				if len(ids) > n {
					s.reporter.Infof("analyzing the first %d of %d posts", n, len(ids))
					ids = ids[:n]
				}
				return s.runner.DeepDive(ctx, ids, intFlag(cmd, "maxComments", maxComments, s.cfg.Stages.MaxComments))
			})
		},
	}

	defaults := config.Default().Stages
	f := cmd.Flags()
	f.StringArrayVar(&posts, "post", nil, "Post id, t3_ fullname or URL (repeatable)")
	f.StringVar(&fromScan, "from-scan", "", "Read post ids from a scan output file")
	f.BoolVar(&useStdin, "stdin", false, "Read post ids from stdin")
	f.IntVar(&top, "top", defaults.DeepDiveTop, "Analyze at most this many posts")
	f.IntVar(&maxComments, "maxComments", defaults.MaxComments, "Maximum comments fetched per post")
	return cmd
}

// collectPostIDs reads ids from whichever single source was selected
func collectPostIDs(stdin io.Reader, posts []string, fromScan string, useStdin bool) ([]string, error) {
	sources := 0
	for _, set := range []bool{len(posts) > 0, fromScan != "", useStdin} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return nil, usageErrorf("one of --post, --from-scan or --stdin is required")
	case sources > 1:
		return nil, usageErrorf("--post, --from-scan and --stdin are mutually exclusive")
	case len(posts) > 0:
		return posts, nil
	case useStdin:
		return readPostIDs(stdin)
	}

	f, err := os.Open(fromScan)
	if err != nil {
		return nil, fmt.Errorf("opening scan file: %w", err)
	}
	defer f.Close()
	return readPostIDs(f)
}
