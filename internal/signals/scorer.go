// Package signals detects pain signals in posts and comments.
//
// Everything here is pure: no I/O, no clocks, no randomness. Identical input
// and lexicon always yield identical scores.
package signals

import (
	"math"
	"strings"

	"github.com/steveyegge/painradar/internal/types"
)

// Score weights
const (
	titleMatchWeight   = 2.0
	bodyMatchWeight    = 1.0
	commentsWeight     = 0.5
	upvotesWeight      = 0.3
	highRatioBonus     = 1.0
	highRatioThreshold = 0.90
	painFlairBonus     = 1.0
)

// Scorer computes pain scores for posts
type Scorer struct {
	lexicon Lexicon
}

// NewScorer creates a Scorer over the given lexicon
func NewScorer(lexicon Lexicon) *Scorer {
	return &Scorer{lexicon: lexicon}
}

// Score computes the pain score of a post. Keyword hits in the title count
// double; engagement enters through log2 so volume alone cannot outrank
// signal density.
func (s *Scorer) Score(p types.Post) types.ScoredPost {
	titleMatches := s.Matches(p.Title, painCategories...)
	bodyMatches := s.Matches(p.Body, painCategories...)

	score := titleMatchWeight*float64(len(titleMatches)) +
		bodyMatchWeight*float64(len(bodyMatches)) +
		commentsWeight*math.Log2(float64(max(p.NumComments, 0))+1) +
		upvotesWeight*math.Log2(float64(max(p.Score, 0))+1)
	if p.UpvoteRatio > highRatioThreshold {
		score += highRatioBonus
	}
	if s.IsPainFlair(p.Flair) {
		score += painFlairBonus
	}

	return types.ScoredPost{
		Post:      p,
		PainScore: Round1(score),
		Signals:   mergeMatches(titleMatches, bodyMatches),
	}
}

// Matches returns the distinct keywords of the given categories found in
// text, in lexicon order
func (s *Scorer) Matches(text string, categories ...types.SignalCategory) []types.SignalMatch {
	return match(s.lexicon, strings.ToLower(text), categories)
}

// IsPainFlair reports whether a flair marks the post as a complaint or help request
func (s *Scorer) IsPainFlair(flair string) bool {
	flair = strings.ToLower(strings.TrimSpace(flair))
	if flair == "" {
		return false
	}
	for _, f := range s.lexicon.PainFlairs {
		if strings.Contains(flair, f) {
			return true
		}
	}
	return false
}

func match(lex Lexicon, lower string, categories []types.SignalCategory) []types.SignalMatch {
	if lower == "" {
		return nil
	}
	var out []types.SignalMatch
	seen := make(map[string]bool)
	for _, c := range categories {
		for _, kw := range lex.list(c) {
			if seen[kw] || !strings.Contains(lower, kw) {
				continue
			}
			seen[kw] = true
			out = append(out, types.SignalMatch{Category: c, Keyword: kw})
		}
	}
	return out
}

func mergeMatches(lists ...[]types.SignalMatch) []types.SignalMatch {
	var out []types.SignalMatch
	seen := make(map[types.SignalMatch]bool)
	for _, l := range lists {
		for _, m := range l {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out
}

// Round1 rounds to one decimal place
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
