package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Post is a forum submission as returned by the submission search endpoint
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Body        string  `json:"selftext"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  Epoch   `json:"created_utc"`
	Flair       string  `json:"link_flair_text"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`

	// BodyHTML is only populated by sources that render bodies as markup
	BodyHTML string `json:"selftext_html,omitempty"`
}

// Comment is a single comment as returned by the comment search endpoint
type Comment struct {
	ID         string `json:"id"`
	PostID     string `json:"link_id"`
	Body       string `json:"body"`
	Score      int    `json:"score"`
	CreatedUTC Epoch  `json:"created_utc"`

	BodyHTML string `json:"body_html,omitempty"`
}

// Normalize strips the fullname prefix from the parent link id
func (c *Comment) Normalize() {
	c.PostID = TrimFullname(c.PostID)
}

// TrimFullname removes a "t1_"/"t3_" style type prefix from an id
func TrimFullname(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > 3 && id[0] == 't' && id[2] == '_' && id[1] >= '0' && id[1] <= '9' {
		return id[3:]
	}
	return id
}

// Epoch is a unix timestamp in seconds. Upstream payloads are inconsistent
// about its encoding, so integers, floats, numeric strings and null are all
// accepted. The zero value means "missing".
type Epoch int64

// UnmarshalJSON implements json.Unmarshaler
func (e *Epoch) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*e = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch %q: %w", raw, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("invalid epoch %q", raw)
	}
	*e = Epoch(int64(f))
	return nil
}

// Valid reports whether the timestamp is present
func (e Epoch) Valid() bool {
	return e > 0
}
