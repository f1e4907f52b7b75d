// painradar mines a forum search API for posts where people complain about
// a domain and measures how strongly other commenters agree.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand
type globalOptions struct {
	configPath string
	verbose    bool
	pretty     bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "painradar",
		Short: "Find and validate pain points in forum discussions",
		Long: `painradar queries a public forum search API for posts expressing
frustration, unmet needs and price complaints, ranks them, and measures how
strongly commenters corroborate them.

Stages run independently and chain through JSON:
  painradar discover --domain "invoicing"
  painradar scan --subreddits freelance,smallbusiness --domain "invoicing" > scan.json
  painradar deep-dive --from-scan scan.json --top 5

Every command prints exactly one JSON document to stdout. Progress goes to
stderr. Each run may issue at most 300 requests.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "YAML file overriding API, rate limit, retry and stage defaults")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Show debug progress on stderr")
	pf.BoolVar(&g.pretty, "pretty", false, "Indent the JSON output")
	pf.BoolVar(&g.noColor, "no-color", false, "Disable colored progress output")

	root.AddCommand(newDiscoverCmd(g), newScanCmd(g), newDeepDiveCmd(g))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		// flag parsing and unknown commands fail before any envelope is written
		if !errors.Is(err, errReported) {
			_ = writeEnvelope(os.Stdout, failure(err, nil), false)
		}
		os.Exit(1)
	}
}
