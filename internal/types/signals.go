package types

import (
	"encoding/json"
	"fmt"
)

// SignalCategory classifies a matched pain keyword
type SignalCategory string

const (
	CategoryFrustration SignalCategory = "frustration"
	CategoryDesire      SignalCategory = "desire"
	CategoryCost        SignalCategory = "cost"
	CategoryAgreement   SignalCategory = "agreement"
	CategorySolution    SignalCategory = "solution"
)

// IsValid checks if the category value is valid
func (c SignalCategory) IsValid() bool {
	switch c {
	case CategoryFrustration, CategoryDesire, CategoryCost, CategoryAgreement, CategorySolution:
		return true
	}
	return false
}

// SignalMatch records one keyword hit
type SignalMatch struct {
	Category SignalCategory `json:"category"`
	Keyword  string         `json:"keyword"`
}

func (m SignalMatch) String() string {
	return fmt.Sprintf("%s:%s", m.Category, m.Keyword)
}

// ScoredPost is a post with its derived pain score. It is a snapshot: the
// score is computed once and never updated.
type ScoredPost struct {
	Post
	PainScore float64
	Signals   []SignalMatch
}

// scoredPostJSON is the wire shape of ScoredPost
type scoredPostJSON struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Subreddit   string        `json:"subreddit"`
	Score       int           `json:"score"`
	NumComments int           `json:"num_comments"`
	UpvoteRatio float64       `json:"upvote_ratio"`
	CreatedUTC  int64         `json:"created_utc"`
	Flair       string        `json:"flair,omitempty"`
	Permalink   string        `json:"permalink,omitempty"`
	URL         string        `json:"url,omitempty"`
	Excerpt     string        `json:"excerpt,omitempty"`
	PainScore   float64       `json:"pain_score"`
	Signals     []SignalMatch `json:"signals"`
}

// ExcerptLength bounds the body text carried in JSON output
const ExcerptLength = 300

// MarshalJSON implements json.Marshaler
func (s ScoredPost) MarshalJSON() ([]byte, error) {
	signals := s.Signals
	if signals == nil {
		signals = []SignalMatch{}
	}
	return json.Marshal(scoredPostJSON{
		ID:          s.Post.ID,
		Title:       s.Post.Title,
		Subreddit:   s.Post.Subreddit,
		Score:       s.Post.Score,
		NumComments: s.Post.NumComments,
		UpvoteRatio: s.Post.UpvoteRatio,
		CreatedUTC:  int64(s.Post.CreatedUTC),
		Flair:       s.Post.Flair,
		Permalink:   s.Post.Permalink,
		URL:         s.Post.URL,
		Excerpt:     Excerpt(s.Post.Body, ExcerptLength),
		PainScore:   s.PainScore,
		Signals:     signals,
	})
}

// ValidationStrength buckets how strongly comments corroborate a post
type ValidationStrength string

const (
	ValidationStrong    ValidationStrength = "strong"
	ValidationModerate  ValidationStrength = "moderate"
	ValidationWeak      ValidationStrength = "weak"
	ValidationAnecdotal ValidationStrength = "anecdotal"
)

// CommentAnalysis summarizes the social validation found in a comment set
type CommentAnalysis struct {
	TotalValidComments int                `json:"totalValidComments"`
	AgreementCount     int                `json:"agreementCount"`
	AgreementRatio     float64            `json:"agreementRatio"`
	ValidationStrength ValidationStrength `json:"validationStrength"`
	TopQuotes          []Quote            `json:"topQuotes"`
	AgreementExamples  []Quote            `json:"agreementExamples"`
	SolutionAttempts   []Quote            `json:"solutionAttempts"`
	MentionedTools     []string           `json:"mentionedTools"`
}

// Quote is an excerpt of a comment kept as evidence
type Quote struct {
	CommentID string         `json:"commentId"`
	Text      string         `json:"text"`
	Score     int            `json:"score"`
	Category  SignalCategory `json:"category,omitempty"`
	Keyword   string         `json:"keyword,omitempty"`
}

// CommunityCandidate is a ranked community produced by discovery
type CommunityCandidate struct {
	Name     string `json:"name"`
	SeedHits int    `json:"seedHits"`
	PainHits int    `json:"painHits"`
	Score    int    `json:"score"`
}
