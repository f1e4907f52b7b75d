package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal search API. Submission searches return posts on
// their first page only; comment searches return comments per link_id.
type fakeAPI struct {
	mu       sync.Mutex
	posts    []map[string]any
	comments map[string][]map[string]any
	status   map[string]int // path -> forced status
	calls    int
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if code, ok := f.status[r.URL.Path]; ok {
		w.WriteHeader(code)
		return
	}

	q := r.URL.Query()
	data := []map[string]any{}
	switch r.URL.Path {
	case "/reddit/search/submission/":
		if ids := q.Get("ids"); ids != "" {
			for _, p := range f.posts {
				if p["id"] == ids {
					data = append(data, p)
				}
			}
		} else if q.Get("before") == "" {
			data = f.posts
		}
	case "/reddit/search/comment/":
		if q.Get("before") == "" {
			if c, ok := f.comments[q.Get("link_id")]; ok {
				data = c
			}
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type testEnvelope struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Details *struct {
			Class    string `json:"class"`
			APICalls int    `json:"api_calls"`
		} `json:"details"`
	} `json:"error"`
}

// runCLI executes the root command against api with pacing disabled
func runCLI(t *testing.T, api *fakeAPI, stdin string, args ...string) (string, testEnvelope, error) {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	cfgPath := filepath.Join(t.TempDir(), "painradar.yaml")
	cfg := fmt.Sprintf(`api:
  base_url: %s
rate_limit:
  max_per_minute: 1000
  min_delay: 0s
  max_jitter: 0s
retry:
  initial_backoff: 0s
`, ts.URL)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()

	var env testEnvelope
	if stdout.Len() > 0 {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &env), "stdout must be one JSON document: %s", stdout.String())
	}
	return stdout.String(), env, err
}

func samplePosts() []map[string]any {
	return []map[string]any{
		{
			"id": "aaa111", "title": "Invoicing software is a nightmare", "selftext": "so frustrating",
			"subreddit": "freelance", "score": 40, "num_comments": 3, "created_utc": 1700000000,
		},
		{
			"id": "bbb222", "title": "Looking for an alternative to my invoicing app", "selftext": "",
			"subreddit": "freelance", "score": 12, "num_comments": 10, "created_utc": 1699990000,
		},
	}
}

func TestScan_EndToEnd(t *testing.T) {
	api := &fakeAPI{posts: samplePosts()}
	_, env, err := runCLI(t, api, "", "scan", "--subreddits", "freelance", "--minComments", "5")
	require.NoError(t, err)
	require.True(t, env.OK)

	var data struct {
		Posts []struct {
			ID        string  `json:"id"`
			PainScore float64 `json:"pain_score"`
		} `json:"posts"`
		Stats struct {
			Queries  int `json:"queries"`
			RawPosts int `json:"raw_posts"`
			APICalls int `json:"api_calls"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Posts, 1)
	assert.Equal(t, "bbb222", data.Posts[0].ID)
	assert.Equal(t, 7, data.Stats.Queries)
	assert.Equal(t, 2, data.Stats.RawPosts)
	assert.Equal(t, 14, data.Stats.APICalls)
	assert.Equal(t, 14, api.callCount())
}

func TestDeepDive_CommentFailureStillSucceeds(t *testing.T) {
	api := &fakeAPI{status: map[string]int{"/reddit/search/comment/": http.StatusInternalServerError}}
	_, env, err := runCLI(t, api, "", "deep-dive", "--post", "https://www.reddit.com/r/x/comments/abc123/title/")
	require.NoError(t, err)
	require.True(t, env.OK)

	var data struct {
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 1)
	assert.Equal(t, "abc123", data.Results[0]["postId"])
	assert.Contains(t, data.Results[0]["error"], "500")
	assert.Len(t, data.Results[0], 2)
}

func TestScanOutputFeedsDeepDive(t *testing.T) {
	api := &fakeAPI{
		posts: samplePosts(),
		comments: map[string][]map[string]any{
			"bbb222": {
				{"id": "c1", "link_id": "t3_bbb222", "body": "Same here, I switched to Notion", "score": 5, "created_utc": 1700000100},
				{"id": "c2", "link_id": "t3_bbb222", "body": "[deleted]", "score": 1, "created_utc": 1700000050},
			},
		},
	}
	scanOut, env, err := runCLI(t, api, "", "scan", "--subreddits", "freelance", "--minComments", "0")
	require.NoError(t, err)
	require.True(t, env.OK)

	_, env, err = runCLI(t, api, scanOut, "deep-dive", "--stdin", "--top", "1", "--maxComments", "50")
	require.NoError(t, err)
	require.True(t, env.OK)

	var data struct {
		Results []struct {
			PostID   string `json:"postId"`
			Post     *struct{ Title string } `json:"post"`
			Analysis *struct {
				TotalValidComments int      `json:"totalValidComments"`
				AgreementCount     int      `json:"agreementCount"`
				MentionedTools     []string `json:"mentionedTools"`
			} `json:"analysis"`
		} `json:"results"`
		APICalls int `json:"api_calls"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 1)
	r := data.Results[0]
	// bbb222 ranks first in the scan, so --top 1 selects it
	assert.Equal(t, "bbb222", r.PostID)
	require.NotNil(t, r.Post)
	assert.Equal(t, "Looking for an alternative to my invoicing app", r.Post.Title)
	require.NotNil(t, r.Analysis)
	assert.Equal(t, 1, r.Analysis.TotalValidComments)
	assert.Equal(t, 1, r.Analysis.AgreementCount)
	assert.Equal(t, []string{"Notion"}, r.Analysis.MentionedTools)
	// metadata plus a single comment page
	assert.Equal(t, 2, data.APICalls)
}

func TestDeepDive_TopCountsDistinctPosts(t *testing.T) {
	api := &fakeAPI{}
	_, env, err := runCLI(t, api, "", "deep-dive",
		"--post", "abc123", "--post", "t3_abc123", "--post", "https://redd.it/abc123", "--post", "def456",
		"--top", "2")
	require.NoError(t, err)
	require.True(t, env.OK)

	var data struct {
		Results []struct {
			PostID string `json:"postId"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Results, 2)
	assert.Equal(t, "abc123", data.Results[0].PostID)
	assert.Equal(t, "def456", data.Results[1].PostID)
}

func TestForbiddenIsFatal(t *testing.T) {
	api := &fakeAPI{status: map[string]int{"/reddit/search/submission/": http.StatusForbidden}}
	_, env, err := runCLI(t, api, "", "discover", "--domain", "invoicing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errReported))
	assert.False(t, env.OK)
	require.NotNil(t, env.Error)
	require.NotNil(t, env.Error.Details)
	assert.Equal(t, "forbidden", env.Error.Details.Class)
	assert.Equal(t, 1, env.Error.Details.APICalls)
	assert.Equal(t, 1, api.callCount())
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		message string
	}{
		{name: "discover without domain", args: []string{"discover"}, message: "--domain is required"},
		{name: "scan without subreddits", args: []string{"scan"}, message: "--subreddits is required"},
		{name: "scan with zero pages", args: []string{"scan", "--subreddits", "x", "--pages", "0"}, message: "pages must be positive"},
		{name: "deep-dive without source", args: []string{"deep-dive"}, message: "one of --post, --from-scan or --stdin"},
		{name: "deep-dive with two sources", args: []string{"deep-dive", "--post", "abc", "--stdin"}, message: "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			_, env, err := runCLI(t, api, "", tt.args...)
			assert.True(t, errors.Is(err, errReported))
			assert.False(t, env.OK)
			require.NotNil(t, env.Error)
			assert.Contains(t, env.Error.Message, tt.message)
			assert.Nil(t, env.Error.Details)
			assert.Equal(t, 0, api.callCount())
		})
	}
}

func TestFromScanFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"ok":true,"data":{"posts":[{"id":"zzz999"}]}}`), 0644))

	api := &fakeAPI{}
	_, env, err := runCLI(t, api, "", "deep-dive", "--from-scan", path)
	require.NoError(t, err)
	require.True(t, env.OK)
	assert.Contains(t, string(env.Data), `"postId":"zzz999"`)
}

func TestMissingConfigFile(t *testing.T) {
	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "discover", "--domain", "x"})

	err := root.Execute()
	assert.True(t, errors.Is(err, errReported))
	assert.Contains(t, stdout.String(), `"ok":false`)
	assert.Contains(t, stdout.String(), "reading config file")
}

func TestUnknownFlagIsNotReported(t *testing.T) {
	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "--bogus"})

	err := root.Execute()
	require.Error(t, err)
	assert.False(t, errors.Is(err, errReported))
	assert.Empty(t, stdout.String())
}

func TestPrettyOutput(t *testing.T) {
	out, env, err := runCLI(t, &fakeAPI{}, "", "--pretty", "discover", "--domain", "invoicing")
	require.NoError(t, err)
	assert.True(t, env.OK)
	assert.Contains(t, out, "\n  \"ok\": true")
}
