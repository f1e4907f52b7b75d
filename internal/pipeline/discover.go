package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/steveyegge/painradar/internal/types"
)

// Discovery tuning. The validation bonus looks only at the single top hit
// of each size-1 query.
const (
	validationBonusScore = 10
	seedHitWeight        = 2
	candidateSlack       = 2
)

// validationQueries are generic pain phrases run against each candidate
var validationQueries = []string{"frustrated", "wish there was", "too expensive"}

// DiscoverResult is the output of the discover stage
type DiscoverResult struct {
	Domain     string                     `json:"domain"`
	Subreddits []types.CommunityCandidate `json:"subreddits"`
	APICalls   int                        `json:"api_calls"`
}

// seedQueries returns the exact-phrase variants used to find communities
func seedQueries(domain string) []string {
	phrase := `"` + domain + `"`
	return []string{phrase, phrase + " app", phrase + " software"}
}

// Discover finds the communities where a domain is discussed and ranks
// them by how much it is discussed there plus whether pain talk shows up.
func (r *Runner) Discover(ctx context.Context, domain string, limit int) (*DiscoverResult, error) {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	r.reporter.Stage("discover", "finding communities for %q", domain)

	// Seed pass: one unscoped page per phrase variant
	seen := make(map[string]bool)
	hits := make(map[string]int)
	for _, q := range seedQueries(domain) {
		coll, err := r.posts.Collect(ctx, types.SearchQuery{Query: q, Size: types.MaxPageSize}, 1, 0)
		if err != nil {
			return nil, fmt.Errorf("seed query %s: %w", q, err)
		}
		if coll.Err != nil {
			r.reporter.Warnf("seed query %s skipped: %v", q, coll.Err)
			continue
		}
		for _, p := range coll.Items {
			if seen[p.ID] || p.Subreddit == "" {
				continue
			}
			seen[p.ID] = true
			hits[p.Subreddit]++
		}
	}
	r.reporter.Infof("seed pass: %d posts across %d communities", len(seen), len(hits))

	candidates := make([]types.CommunityCandidate, 0, len(hits))
	for name, n := range hits {
		candidates = append(candidates, types.CommunityCandidate{Name: name, SeedHits: n})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].SeedHits != candidates[j].SeedHits {
			return candidates[i].SeedHits > candidates[j].SeedHits
		}
		return candidates[i].Name < candidates[j].Name
	})
	if len(candidates) > limit+candidateSlack {
		candidates = candidates[:limit+candidateSlack]
	}

	// Validation pass: a size-1 probe per pain phrase per candidate
	for i := range candidates {
		c := &candidates[i]
		for _, q := range validationQueries {
			coll, err := r.posts.Collect(ctx, types.SearchQuery{Query: q, Subreddit: c.Name, Size: 1}, 1, 1)
			if err != nil {
				return nil, fmt.Errorf("validating %s: %w", c.Name, err)
			}
			if coll.Err != nil {
				r.reporter.Warnf("validation query %q in r/%s skipped: %v", q, c.Name, coll.Err)
				continue
			}
			if len(coll.Items) == 0 {
				continue
			}
			c.PainHits++
			if coll.Items[0].Score > validationBonusScore {
				c.PainHits++
			}
		}
		c.Score = seedHitWeight*c.SeedHits + c.PainHits
		r.reporter.Debugf("r/%s: seed=%d pain=%d score=%d", c.Name, c.SeedHits, c.PainHits, c.Score)
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SeedHits != b.SeedHits {
			return a.SeedHits > b.SeedHits
		}
		return a.Name < b.Name
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return &DiscoverResult{
		Domain:     domain,
		Subreddits: candidates,
		APICalls:   r.APICalls(),
	}, nil
}
