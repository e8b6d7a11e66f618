package discover

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/seatwatch/internal/linknorm"
)

// urlPattern pulls absolute URLs out of attribute and handler text, e.g.
// window.open('https://tce.by/shows.html?base=..&data=..').
var urlPattern = regexp.MustCompile(`https?://[^\s"'<>()\\]+`)

// CandidateTicketURLs filters raw candidate strings down to qualifying
// ticket URLs. A candidate is either a URL itself or free text (an onclick
// body, a script fragment) with URLs embedded in it. Fragment-stripped,
// deduplicated, first-seen order.
func CandidateTicketURLs(raw []string) []string {
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if u := linknorm.StripFragment(s); linknorm.IsTicketURL(u) {
			out = append(out, u)
			continue
		}
		for _, m := range urlPattern.FindAllString(s, -1) {
			m = strings.Trim(m, `"'.,;`)
			if u := linknorm.StripFragment(m); linknorm.IsTicketURL(u) {
				out = append(out, u)
			}
		}
	}
	return dedupe(out)
}

// ScanMarkup walks the whole document, every attribute value and text
// node, inline scripts included, for qualifying ticket URLs. Some show
// pages bury the link in a script payload or a bespoke attribute no
// selector anticipates.
func ScanMarkup(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return CandidateTicketURLs([]string{markup})
	}

	var raw []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				raw = append(raw, a.Val)
			}
		}
		if n.Type == html.TextNode {
			raw = append(raw, n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return CandidateTicketURLs(raw)
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	var out []string
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
