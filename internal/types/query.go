package types

import (
	"net/url"
	"strconv"
	"strings"
)

// Default paging values used when a query leaves them unset
const (
	DefaultPageSize = 100
	MaxPageSize     = 100
)

// SearchQuery describes one request to a search endpoint. After and Before
// bound the created-at window (unix seconds, 0 = unbounded); Before doubles
// as the backward pagination cursor.
type SearchQuery struct {
	Query     string
	Subreddit string
	IDs       []string
	LinkID    string
	After     int64
	Before    int64
	MinScore  int
	Size      int
	Sort      string // "desc" or "asc"
	SortType  string // field to sort by, e.g. "created_utc"
}

// WithCursor returns a copy of q whose upper time bound is before
func (q SearchQuery) WithCursor(before int64) SearchQuery {
	q.Before = before
	return q
}

// Values encodes the query as URL parameters
func (q SearchQuery) Values() url.Values {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Subreddit != "" {
		v.Set("subreddit", q.Subreddit)
	}
	if len(q.IDs) > 0 {
		v.Set("ids", strings.Join(q.IDs, ","))
	}
	if q.LinkID != "" {
		v.Set("link_id", q.LinkID)
	}
	if q.After > 0 {
		v.Set("after", strconv.FormatInt(q.After, 10))
	}
	if q.Before > 0 {
		v.Set("before", strconv.FormatInt(q.Before, 10))
	}
	if q.MinScore > 0 {
		// strictly-greater filter, so ">=N" becomes ">N-1"
		v.Set("score", ">"+strconv.Itoa(q.MinScore-1))
	}
	size := q.Size
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	v.Set("size", strconv.Itoa(size))
	sort := q.Sort
	if sort == "" {
		sort = "desc"
	}
	v.Set("sort", sort)
	sortType := q.SortType
	if sortType == "" {
		sortType = "created_utc"
	}
	v.Set("sort_type", sortType)
	return v
}
