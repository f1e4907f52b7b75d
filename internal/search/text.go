package search

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText returns readable text for a body. Plain text wins; markup is only
// parsed when the plain field is empty. HTML entities left in plain text by
// the upstream archive are decoded.
func CleanText(plain, markup string) string {
	if p := strings.TrimSpace(plain); p != "" {
		return html.UnescapeString(p)
	}
	if strings.TrimSpace(markup) == "" {
		return ""
	}
	return htmlToText(html.UnescapeString(markup))
}

func htmlToText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var parts []string
	doc.Find("p,li,blockquote,pre").Each(func(i int, s *goquery.Selection) {
		// nested blocks are collected through their parent
		if s.ParentsFiltered("p,li,blockquote,pre").Length() > 0 {
			return
		}
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(parts, "\n\n")
}
