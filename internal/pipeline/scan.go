package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steveyegge/painradar/internal/signals"
	"github.com/steveyegge/painradar/internal/types"
)

// Domain relevance adjustment applied to scan scores when a domain is given.
// The values are hand-tuned and kept as-is.
const (
	domainMatchBonus   = 3.0
	domainMissPenalty  = -2.0
	minDomainTermBytes = 3
)

// categoryQueries are the fixed pain searches run in every scanned community
var categoryQueries = []struct {
	category types.SignalCategory
	queries  []string
}{
	{types.CategoryFrustration, []string{"frustrated", "annoying", "hate"}},
	{types.CategoryDesire, []string{"wish there was", "looking for alternative"}},
	{types.CategoryCost, []string{"too expensive", "overpriced"}},
}

// ScanOptions controls a scan
type ScanOptions struct {
	Subreddits  []string
	Domain      string
	Days        int
	MinScore    int
	MinComments int
	Limit       int
	Pages       int
}

// DefaultScanOptions returns the default scan thresholds
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		Days:        365,
		MinScore:    1,
		MinComments: 3,
		Limit:       30,
		Pages:       2,
	}
}

// Validate checks the options
func (o ScanOptions) Validate() error {
	if len(o.Subreddits) == 0 {
		return errors.New("at least one subreddit is required")
	}
	if o.Days < 1 {
		return fmt.Errorf("days must be positive, got %d", o.Days)
	}
	if o.MinScore < 0 {
		return fmt.Errorf("minScore must be non-negative, got %d", o.MinScore)
	}
	if o.MinComments < 0 {
		return fmt.Errorf("minComments must be non-negative, got %d", o.MinComments)
	}
	if o.Limit < 1 {
		return fmt.Errorf("limit must be positive, got %d", o.Limit)
	}
	if o.Pages < 1 {
		return fmt.Errorf("pages must be positive, got %d", o.Pages)
	}
	return nil
}

// ScanStats describes how a scan spent its requests
type ScanStats struct {
	RunID         string   `json:"run_id,omitempty"`
	Subreddits    []string `json:"subreddits"`
	Queries       int      `json:"queries"`
	FailedQueries int      `json:"failed_queries"`
	RawPosts      int      `json:"raw_posts"`
	FilteredPosts int      `json:"filtered_posts"`
	Returned      int      `json:"returned"`
	APICalls      int      `json:"api_calls"`
	After         int64    `json:"after"`
}

// ScanResult is the output of the scan stage
type ScanResult struct {
	Posts []types.ScoredPost `json:"posts"`
	Stats ScanStats          `json:"stats"`
}

// NormalizeSubreddits trims names, strips r/ prefixes and drops duplicates
// (case-insensitively), preserving order
func NormalizeSubreddits(names []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.TrimSpace(n)
		n = strings.TrimPrefix(strings.TrimPrefix(n, "/"), "r/")
		n = strings.Trim(n, "/ ")
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// scanQueries returns the category queries plus the domain compounds
func scanQueries(domain string) []string {
	var out []string
	for _, c := range categoryQueries {
		out = append(out, c.queries...)
	}
	if domain != "" {
		phrase := `"` + domain + `"`
		out = append(out, phrase+" frustrating", phrase+" alternative", phrase+" expensive")
	}
	return out
}

// Scan searches communities for pain signals and returns the highest
// scoring posts.
func (r *Runner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	opts.Subreddits = NormalizeSubreddits(opts.Subreddits)
	opts.Domain = strings.TrimSpace(opts.Domain)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan options: %w", err)
	}

	after := r.now().Add(-time.Duration(opts.Days) * 24 * time.Hour).Unix()
	queries := scanQueries(opts.Domain)
	stats := ScanStats{
		RunID:      r.reporter.RunID(),
		Subreddits: opts.Subreddits,
		After:      after,
	}

	r.reporter.Stage("scan", "%d communities × %d queries, last %d days",
		len(opts.Subreddits), len(queries), opts.Days)

	byID := make(map[string]types.Post)
	var order []string
	for _, sub := range opts.Subreddits {
		for _, q := range queries {
			stats.Queries++
			base := types.SearchQuery{
				Query:     q,
				Subreddit: sub,
				After:     after,
				MinScore:  opts.MinScore,
				Size:      types.MaxPageSize,
			}
			coll, err := r.posts.Collect(ctx, base, opts.Pages, 0)
			if err != nil {
				return nil, fmt.Errorf("scanning r/%s for %s: %w", sub, q, err)
			}
			if coll.Failed() {
				stats.FailedQueries++
			}
			added := 0
			for _, p := range coll.Items {
				if _, ok := byID[p.ID]; ok {
					continue
				}
				byID[p.ID] = p
				order = append(order, p.ID)
				added++
			}
			r.reporter.Debugf("r/%s %s: %d posts (%d new, stop=%s)", sub, q, len(coll.Items), added, coll.Stop)
		}
	}
	stats.RawPosts = len(byID)

	scored := make([]types.ScoredPost, 0, len(order))
	for _, id := range order {
		p := byID[id]
		if p.NumComments < opts.MinComments {
			continue
		}
		sp := r.scorer.Score(p)
		if opts.Domain != "" {
			sp.PainScore = signals.Round1(sp.PainScore + domainAdjustment(p, opts.Domain))
		}
		scored = append(scored, sp)
	}
	stats.FilteredPosts = len(scored)

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.PainScore != b.PainScore {
			return a.PainScore > b.PainScore
		}
		if a.NumComments != b.NumComments {
			return a.NumComments > b.NumComments
		}
		return a.ID < b.ID
	})
	if len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	stats.Returned = len(scored)
	stats.APICalls = r.APICalls()

	r.reporter.Infof("scan: %d raw, %d after filters, returning %d (%d api calls)",
		stats.RawPosts, stats.FilteredPosts, stats.Returned, stats.APICalls)

	return &ScanResult{Posts: scored, Stats: stats}, nil
}

// domainAdjustment rewards posts that mention the domain and sinks the
// off-topic ones generic pain queries pull in
func domainAdjustment(p types.Post, domain string) float64 {
	text := strings.ToLower(p.Title + "\n" + p.Body)
	domain = strings.ToLower(domain)
	if strings.Contains(text, domain) {
		return domainMatchBonus
	}
	for _, term := range strings.Fields(domain) {
		if len(term) >= minDomainTermBytes && strings.Contains(text, term) {
			return domainMatchBonus
		}
	}
	return domainMissPenalty
}
