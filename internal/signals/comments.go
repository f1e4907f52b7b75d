package signals

import (
	"math"
	"sort"
	"strings"

	"github.com/steveyegge/painradar/internal/types"
)

// Caps on the evidence lists kept per analysis
const (
	MaxTopQuotes         = 5
	MaxAgreementExamples = 5
	MaxSolutionAttempts  = 10
	MaxMentionedTools    = 15

	// minQuoteScore is the comment score needed to be sampled as a top quote
	minQuoteScore = 2
	quoteLength   = 280
)

// CommentAnalyzer measures how strongly a comment thread corroborates a post
type CommentAnalyzer struct {
	lexicon Lexicon
	tools   *ToolExtractor
}

// NewCommentAnalyzer creates an analyzer over the given lexicon
func NewCommentAnalyzer(lexicon Lexicon) *CommentAnalyzer {
	return &CommentAnalyzer{
		lexicon: lexicon,
		tools:   NewToolExtractor(lexicon.ToolNoise),
	}
}

// AnalyzeComments analyzes comments with the default lexicon
func AnalyzeComments(comments []types.Comment) types.CommentAnalysis {
	return NewCommentAnalyzer(DefaultLexicon()).Analyze(comments)
}

// Analyze computes validation metrics. Highly upvoted comments are visited
// first so the sampled quotes favor them.
func (a *CommentAnalyzer) Analyze(comments []types.Comment) types.CommentAnalysis {
	valid := make([]types.Comment, 0, len(comments))
	for _, c := range comments {
		if IsValidCommentBody(c.Body) {
			valid = append(valid, c)
		}
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Score != valid[j].Score {
			return valid[i].Score > valid[j].Score
		}
		return valid[i].ID < valid[j].ID
	})

	result := types.CommentAnalysis{
		TotalValidComments: len(valid),
		TopQuotes:          []types.Quote{},
		AgreementExamples:  []types.Quote{},
		SolutionAttempts:   []types.Quote{},
		MentionedTools:     []string{},
	}
	seenTools := make(map[string]bool)

	for _, c := range valid {
		lower := strings.ToLower(c.Body)

		if m := match(a.lexicon, lower, []types.SignalCategory{types.CategoryAgreement}); len(m) > 0 {
			result.AgreementCount++
			if len(result.AgreementExamples) < MaxAgreementExamples {
				result.AgreementExamples = append(result.AgreementExamples, quote(c, m[0]))
			}
		}

		if kw, end := a.findSolution(c.Body, lower); kw != "" {
			if len(result.SolutionAttempts) < MaxSolutionAttempts {
				result.SolutionAttempts = append(result.SolutionAttempts,
					quote(c, types.SignalMatch{Category: types.CategorySolution, Keyword: kw}))
			}
			if tool := a.tools.ExtractMentionedTool(c.Body, end); tool != "" && len(result.MentionedTools) < MaxMentionedTools {
				key := strings.ToLower(tool)
				if !seenTools[key] {
					seenTools[key] = true
					result.MentionedTools = append(result.MentionedTools, tool)
				}
			}
		}

		if c.Score >= minQuoteScore && len(result.TopQuotes) < MaxTopQuotes {
			if m := match(a.lexicon, lower, painCategories); len(m) > 0 {
				result.TopQuotes = append(result.TopQuotes, quote(c, m[0]))
			}
		}
	}

	if result.TotalValidComments > 0 {
		ratio := float64(result.AgreementCount) / float64(result.TotalValidComments)
		result.ValidationStrength = ClassifyValidation(ratio, result.AgreementCount)
		result.AgreementRatio = math.Round(ratio*1000) / 1000
	} else {
		result.ValidationStrength = ClassifyValidation(0, 0)
	}
	return result
}

// findSolution returns the first solution phrase present in the comment and
// the byte offset just past it in the original text
func (a *CommentAnalyzer) findSolution(body, lower string) (string, int) {
	for _, kw := range a.lexicon.Solution {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		end := idx + len(kw)
		// lowercasing can change byte lengths for some scripts
		if len(lower) != len(body) {
			end = len(body)
			if i := indexFold(body, kw); i >= 0 {
				end = i + len(kw)
			}
		}
		return kw, end
	}
	return "", 0
}

// indexFold finds substr in s ignoring case, returning a byte offset into s
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
	}
	return -1
}

// ClassifyValidation buckets an agreement ratio and count. The first
// matching bucket wins.
func ClassifyValidation(ratio float64, count int) types.ValidationStrength {
	switch {
	case ratio > 0.20 && count >= 10:
		return types.ValidationStrong
	case ratio > 0.10 && count >= 5:
		return types.ValidationModerate
	case ratio > 0.05 || count >= 3:
		return types.ValidationWeak
	default:
		return types.ValidationAnecdotal
	}
}

// IsValidCommentBody rejects deleted, removed and blank comments
func IsValidCommentBody(body string) bool {
	switch strings.TrimSpace(body) {
	case "", "[deleted]", "[removed]":
		return false
	}
	return true
}

func quote(c types.Comment, m types.SignalMatch) types.Quote {
	return types.Quote{
		CommentID: c.ID,
		Text:      types.Excerpt(c.Body, quoteLength),
		Score:     c.Score,
		Category:  m.Category,
		Keyword:   m.Keyword,
	}
}
