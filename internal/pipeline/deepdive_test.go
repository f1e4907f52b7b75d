package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/painradar/internal/ratelimit"
	"github.com/steveyegge/painradar/internal/search"
	"github.com/steveyegge/painradar/internal/types"
)

// commentPages serves total comments for a post in pages of q.Size,
// newest first, using the cursor to find where to resume
func commentPages(total int) func(q types.SearchQuery) ([]types.Comment, error) {
	return func(q types.SearchQuery) ([]types.Comment, error) {
		start := 0
		if q.Before != 0 {
			start = int(100_000 - q.Before)
		}
		var out []types.Comment
		for i := start + 1; i <= total && len(out) < q.Size; i++ {
			out = append(out, types.Comment{
				ID:         fmt.Sprintf("c%d", i),
				PostID:     q.LinkID,
				Body:       "same here",
				Score:      1,
				CreatedUTC: types.Epoch(100_000 - i),
			})
		}
		return out, nil
	}
}

func TestDeepDive_CommentFailureIsPerPost(t *testing.T) {
	src := &fakeSource{
		comments: func(q types.SearchQuery) ([]types.Comment, error) {
			if q.LinkID == "bad" {
				return nil, &search.StatusError{Code: 500}
			}
			return commentPages(3)(q)
		},
	}
	r := newTestRunner(t, src, 0)

	got, err := r.DeepDive(context.Background(), []string{"bad", "good"}, 200)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)

	raw, err := json.Marshal(got.Results[0])
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Len(t, fields, 2)
	assert.Equal(t, "bad", fields["postId"])
	assert.Contains(t, fields["error"], "http status 500")

	good := got.Results[1]
	assert.Empty(t, good.Error)
	require.NotNil(t, good.Analysis)
	assert.Equal(t, 3, good.Analysis.AgreementCount)
	assert.Equal(t, 3, good.CommentsFetched)
}

func TestDeepDive_PaginatesToMaxComments(t *testing.T) {
	src := &fakeSource{comments: commentPages(500)}
	r := newTestRunner(t, src, 0)

	got, err := r.DeepDive(context.Background(), []string{"abc"}, 150)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, 150, got.Results[0].CommentsFetched)
	assert.Equal(t, 150, got.Results[0].Analysis.TotalValidComments)

	require.Len(t, src.commentQueries, 2)
	assert.Equal(t, "abc", src.commentQueries[0].LinkID)
	assert.Equal(t, 100, src.commentQueries[0].Size)
	assert.Zero(t, src.commentQueries[0].Before)
	assert.Equal(t, int64(100_000-100), src.commentQueries[1].Before)
	// one metadata lookup plus two comment pages
	assert.Equal(t, 3, got.APICalls)
}

func TestDeepDive_SmallMaxCommentsUsesSmallPages(t *testing.T) {
	src := &fakeSource{comments: commentPages(500)}
	r := newTestRunner(t, src, 0)

	got, err := r.DeepDive(context.Background(), []string{"abc"}, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, got.Results[0].CommentsFetched)
	require.Len(t, src.commentQueries, 1)
	assert.Equal(t, 40, src.commentQueries[0].Size)
}

func TestDeepDive_MetadataIsOptional(t *testing.T) {
	src := &fakeSource{
		submissions: func(q types.SearchQuery) ([]types.Post, error) {
			if len(q.IDs) == 1 && q.IDs[0] == "abc" {
				return []types.Post{{ID: "abc", Title: "Too expensive", NumComments: 3}}, nil
			}
			return nil, &search.StatusError{Code: 404}
		},
		comments: commentPages(1),
	}
	r := newTestRunner(t, src, 0)

	got, err := r.DeepDive(context.Background(), []string{"abc", "def"}, 10)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)

	require.NotNil(t, got.Results[0].Post)
	assert.Equal(t, "Too expensive", got.Results[0].Post.Title)
	assert.Greater(t, got.Results[0].Post.PainScore, 0.0)

	assert.Nil(t, got.Results[1].Post)
	assert.Empty(t, got.Results[1].Error)
	assert.NotNil(t, got.Results[1].Analysis)
}

func TestDeepDive_NormalizesIDs(t *testing.T) {
	src := &fakeSource{comments: commentPages(0)}
	r := newTestRunner(t, src, 0)

	got, err := r.DeepDive(context.Background(), []string{
		"t3_abc",
		"https://www.reddit.com/r/SaaS/comments/abc/some_title/",
		"DEF",
		"not a post!",
	}, 10)
	require.NoError(t, err)
	require.Len(t, got.Results, 3)
	assert.Equal(t, "abc", got.Results[0].PostID)
	assert.Equal(t, "def", got.Results[1].PostID)
	assert.Equal(t, "not a post!", got.Results[2].PostID)
	assert.NotEmpty(t, got.Results[2].Error)
	// no requests for the unparseable entry
	assert.Len(t, src.commentQueries, 2)
}

func TestDeepDive_BudgetExceededAborts(t *testing.T) {
	src := &fakeSource{comments: commentPages(5)}
	r := newTestRunner(t, src, 3)

	_, err := r.DeepDive(context.Background(), []string{"a", "b"}, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ratelimit.ErrBudgetExceeded))
}

func TestDeepDive_InvalidInput(t *testing.T) {
	r := newTestRunner(t, &fakeSource{}, 0)
	_, err := r.DeepDive(context.Background(), nil, 10)
	assert.Error(t, err)
	_, err = r.DeepDive(context.Background(), []string{"abc"}, 0)
	assert.Error(t, err)
}

func TestParsePostID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "1abc2d", want: "1abc2d"},
		{in: " t3_1abc2d ", want: "1abc2d"},
		{in: "T3_1ABC2D", want: "1abc2d"},
		{in: "https://www.reddit.com/r/SaaS/comments/1abc2d/title_here/", want: "1abc2d"},
		{in: "https://old.reddit.com/r/SaaS/comments/1abc2d/title/k3xyz/?context=3", want: "1abc2d"},
		{in: "/r/SaaS/comments/1abc2d/", want: "1abc2d"},
		{in: "https://redd.it/1abc2d", want: "1abc2d"},
		{in: "redd.it/1ABC2D/", want: "1abc2d"},
		{in: "https://redd.it/", wantErr: true},
		{in: "https://example.com/1abc2d", wantErr: true},
		{in: "", wantErr: true},
		{in: "has space", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePostID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniquePostIDs(t *testing.T) {
	got := UniquePostIDs([]string{"abc123", " t3_abc123", "https://redd.it/abc123", "def456", "not valid", "not valid"})
	assert.Equal(t, []string{"abc123", "def456", "not valid"}, got)
}
