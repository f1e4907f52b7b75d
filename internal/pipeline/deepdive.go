package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/steveyegge/painradar/internal/retry"
	"github.com/steveyegge/painradar/internal/types"
)

// PostAnalysis is the deep-dive outcome for one post. A post whose comments
// could not be fetched carries only PostID and Error.
type PostAnalysis struct {
	PostID          string                 `json:"postId"`
	Post            *types.ScoredPost      `json:"post,omitempty"`
	CommentsFetched int                    `json:"commentsFetched,omitempty"`
	Analysis        *types.CommentAnalysis `json:"analysis,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

// DeepDiveResult is the output of the deep-dive stage
type DeepDiveResult struct {
	Results  []PostAnalysis `json:"results"`
	APICalls int            `json:"api_calls"`
}

// DeepDive fetches and analyzes the comments of each post. Per-post
// failures are reported in the result; only fatal errors are returned.
func (r *Runner) DeepDive(ctx context.Context, ids []string, maxComments int) (*DeepDiveResult, error) {
	if maxComments < 1 {
		return nil, fmt.Errorf("maxComments must be positive, got %d", maxComments)
	}
	refs := parsePostRefs(ids)
	if len(refs) == 0 {
		return nil, errors.New("no post ids given")
	}

	r.reporter.Stage("deep-dive", "%d posts, up to %d comments each", len(refs), maxComments)

	result := &DeepDiveResult{Results: make([]PostAnalysis, 0, len(refs))}
	for i, ref := range refs {
		if ref.err != nil {
			r.reporter.Warnf("skipping %q: %v", ref.raw, ref.err)
			result.Results = append(result.Results, PostAnalysis{PostID: ref.raw, Error: ref.err.Error()})
			continue
		}

		r.reporter.Infof("[%d/%d] post %s", i+1, len(refs), ref.id)
		pa, err := r.analyzePost(ctx, ref.id, maxComments)
		if err != nil {
			return nil, err
		}
		result.Results = append(result.Results, pa)
	}

	result.APICalls = r.APICalls()
	return result, nil
}

func (r *Runner) analyzePost(ctx context.Context, id string, maxComments int) (PostAnalysis, error) {
	pa := PostAnalysis{PostID: id}

	// Metadata is optional; the upstream index often lacks it
	posts, err := retry.Do(ctx, r.executor, "post "+id+" metadata", func(attemptCtx context.Context) ([]types.Post, error) {
		return r.source.SearchSubmissions(attemptCtx, types.SearchQuery{IDs: []string{id}, Size: 1})
	})
	switch {
	case err != nil && (retry.IsFatal(err) || ctx.Err() != nil):
		return pa, fmt.Errorf("post %s: %w", id, err)
	case err != nil:
		r.reporter.Warnf("post %s: metadata unavailable: %v", id, err)
	case len(posts) > 0:
		sp := r.scorer.Score(posts[0])
		pa.Post = &sp
	default:
		r.reporter.Debugf("post %s: no metadata returned", id)
	}

	base := types.SearchQuery{LinkID: id, Size: min(types.MaxPageSize, maxComments)}
	pages := (maxComments + types.MaxPageSize - 1) / types.MaxPageSize
	coll, err := r.comments.Collect(ctx, base, pages, maxComments)
	if err != nil {
		return pa, fmt.Errorf("post %s comments: %w", id, err)
	}
	if coll.Failed() {
		r.reporter.Warnf("post %s: comment fetch failed: %v", id, coll.Err)
		pa.Error = coll.Err.Error()
		return pa, nil
	}

	analysis := r.analyzer.Analyze(coll.Items)
	pa.CommentsFetched = len(coll.Items)
	pa.Analysis = &analysis
	r.reporter.Debugf("post %s: %d comments, %s validation", id, len(coll.Items), analysis.ValidationStrength)
	return pa, nil
}
