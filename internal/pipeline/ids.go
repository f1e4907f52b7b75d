package pipeline

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/steveyegge/painradar/internal/types"
)

var (
	bareID       = regexp.MustCompile(`^[a-z0-9]{1,16}$`)
	commentsPath = regexp.MustCompile(`/comments/([A-Za-z0-9]+)`)
)

// shortLinkHost serves links of the form https://redd.it/<id>
const shortLinkHost = "redd.it"

// ParsePostID accepts a bare post id, a t3_ fullname, a permalink/URL
// containing /comments/<id>/ or a short link, and returns the bare id
func ParsePostID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty post id")
	}

	if strings.Contains(s, "/") {
		host, path := "", s
		if u, err := url.Parse(s); err == nil && u.Path != "" {
			host, path = strings.ToLower(u.Hostname()), u.Path
		}
		if host == "" {
			if rest, ok := cutPrefixFold(path, shortLinkHost+"/"); ok {
				host, path = shortLinkHost, "/"+rest
			}
		}
		seg := strings.Trim(path, "/")
		isShort := strings.TrimPrefix(host, "www.") == shortLinkHost
		switch m := commentsPath.FindStringSubmatch(path); {
		case m != nil:
			s = m[1]
		case isShort && seg != "" && !strings.Contains(seg, "/"):
			s = seg
		default:
			return "", fmt.Errorf("no post id in %q", raw)
		}
	}

	id := types.TrimFullname(strings.ToLower(s))
	if !bareID.MatchString(id) {
		return "", fmt.Errorf("invalid post id %q", raw)
	}
	return id, nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// UniquePostIDs drops entries that name the same post as an earlier one,
// keeping the first spelling. Unparseable entries are kept.
func UniquePostIDs(raw []string) []string {
	refs := parsePostRefs(raw)
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.raw)
	}
	return out
}

// postRef is a deep-dive input after parsing
type postRef struct {
	raw string
	id  string
	err error
}

// parsePostRefs parses ids, dropping duplicates while preserving order.
// Unparseable entries are kept with their error.
func parsePostRefs(raw []string) []postRef {
	var out []postRef
	seen := make(map[string]bool)
	for _, r := range raw {
		id, err := ParsePostID(r)
		key := id
		if err != nil {
			key = "!" + strings.TrimSpace(r)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, postRef{raw: strings.TrimSpace(r), id: id, err: err})
	}
	return out
}
