package signals

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// toolWindow is how far past a solution phrase tool names are searched for
const toolWindow = 50

var capitalizedRun = regexp.MustCompile(`[A-Z][A-Za-z0-9]+(?:[.\-][A-Za-z0-9]+)*(?:\s+[A-Z][A-Za-z0-9]+(?:[.\-][A-Za-z0-9]+)*)?`)

var defaultToolExtractor = NewToolExtractor(DefaultLexicon().ToolNoise)

// ExtractMentionedTool runs the default extractor
func ExtractMentionedTool(text string, matchIndex int) string {
	return defaultToolExtractor.ExtractMentionedTool(text, matchIndex)
}

// ToolExtractor guesses product names mentioned after a solution phrase.
// This is a fuzzy heuristic kept behind one function so it can be swapped
// out without touching the analyzer.
type ToolExtractor struct {
	noise map[string]bool
}

// NewToolExtractor creates an extractor that rejects the given noise words
func NewToolExtractor(noise []string) *ToolExtractor {
	m := make(map[string]bool, len(noise))
	for _, n := range noise {
		m[strings.ToLower(n)] = true
	}
	return &ToolExtractor{noise: m}
}

// ExtractMentionedTool returns the first capitalized one or two word run in
// the ~50 bytes of text following offset, skipping noise words. It returns
// "" when nothing plausible is found.
func (x *ToolExtractor) ExtractMentionedTool(text string, offset int) string {
	if offset < 0 || offset >= len(text) {
		return ""
	}
	for offset < len(text) && !utf8.RuneStart(text[offset]) {
		offset++
	}
	end := min(offset+toolWindow, len(text))
	// finish a word the window would otherwise cut in half
	for end < len(text) && end-offset < toolWindow+20 {
		r, size := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		end += size
	}
	window := text[offset:end]

	for _, loc := range capitalizedRun.FindAllStringIndex(window, -1) {
		// must start at a word boundary
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(window[:loc[0]])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '\'' {
				continue
			}
		}
		if name := x.clean(window[loc[0]:loc[1]]); name != "" {
			return name
		}
	}
	return ""
}

// clean drops noise words from a candidate run
func (x *ToolExtractor) clean(candidate string) string {
	words := strings.Fields(candidate)
	for len(words) > 0 && x.noise[strings.ToLower(words[0])] {
		words = words[1:]
	}
	if len(words) == 2 && x.noise[strings.ToLower(words[1])] {
		words = words[:1]
	}
	return strings.Join(words, " ")
}
