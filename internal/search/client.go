// Package search is a client for a PullPush-compatible forum search API.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/steveyegge/painradar/internal/types"
)

const (
	submissionPath = "/reddit/search/submission/"
	commentPath    = "/reddit/search/comment/"
)

// Options configures the HTTP client
type Options struct {
	BaseURL   string        `json:"base_url"`
	UserAgent string        `json:"user_agent"`
	Timeout   time.Duration `json:"timeout"`
	SizeCap   int64         `json:"size_cap"` // maximum response body size in bytes
}

// DefaultOptions returns the client defaults
func DefaultOptions() Options {
	return Options{
		BaseURL:   "https://api.pullpush.io",
		UserAgent: "painradar/1.0 (read-only research tool)",
		Timeout:   15 * time.Second,
		SizeCap:   10 * 1024 * 1024,
	}
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.Code, e.URL)
}

// StatusCode exposes the HTTP status for failure classification
func (e *StatusError) StatusCode() int { return e.Code }

// Client issues single search requests. It performs no retries or pacing;
// callers wrap each call with the run's retry executor.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	sizeCap   int64
}

// NewClient creates a search client
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultOptions().Timeout
	}
	sizeCap := opts.SizeCap
	if sizeCap <= 0 {
		sizeCap = DefaultOptions().SizeCap
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = DefaultOptions().UserAgent
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		client:    &http.Client{Transport: transport, Timeout: timeout},
		userAgent: ua,
		sizeCap:   sizeCap,
	}, nil
}

type envelope[T any] struct {
	Data []T `json:"data"`
}

// SearchSubmissions runs one submission search
func (c *Client) SearchSubmissions(ctx context.Context, q types.SearchQuery) ([]types.Post, error) {
	var env envelope[types.Post]
	if err := c.get(ctx, submissionPath, q, &env); err != nil {
		return nil, err
	}
	posts := env.Data[:0]
	for _, p := range env.Data {
		if strings.TrimSpace(p.ID) == "" {
			continue
		}
		p.ID = types.TrimFullname(p.ID)
		p.Title = CleanText(p.Title, "")
		p.Body = CleanText(p.Body, p.BodyHTML)
		p.BodyHTML = ""
		posts = append(posts, p)
	}
	return posts, nil
}

// SearchComments runs one comment search
func (c *Client) SearchComments(ctx context.Context, q types.SearchQuery) ([]types.Comment, error) {
	var env envelope[types.Comment]
	if err := c.get(ctx, commentPath, q, &env); err != nil {
		return nil, err
	}
	comments := env.Data[:0]
	for _, cm := range env.Data {
		if strings.TrimSpace(cm.ID) == "" {
			continue
		}
		cm.Normalize()
		cm.Body = CleanText(cm.Body, cm.BodyHTML)
		cm.BodyHTML = ""
		comments = append(comments, cm)
	}
	return comments, nil
}

func (c *Client) get(ctx context.Context, path string, q types.SearchQuery, out any) error {
	u := c.baseURL + path + "?" + q.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return &StatusError{Code: resp.StatusCode, URL: path}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, c.sizeCap)).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
