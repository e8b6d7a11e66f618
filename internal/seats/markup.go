package seats

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// PriceMarker is the substring the partner puts into the title attribute of
// a purchasable seat cell ("Цена" = price). Its presence distinguishes a
// seat on sale from a decorative cell.
const PriceMarker = "Цена"

// pricePattern matches free-text price mentions in rendered markup, e.g.
// "Цена: 25 руб." or "Цена 25,50". Last-resort extraction when no
// structured seat element survives into the DOM.
var pricePattern = regexp.MustCompile(`(?i)цена[:\s]*[0-9]+(?:[.,][0-9]+)?(?:\s*(?:руб|р\.|BYN))?\.?`)

// ExtractPricedFromMarkup scans raw page markup for seat descriptions. It
// walks every element attribute for price-bearing titles and handlers, then
// falls back to regex matches over text content. Returns deduplicated
// descriptions in document order.
func ExtractPricedFromMarkup(markup string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		// Unparseable markup still gets the regex pass.
		for _, m := range pricePattern.FindAllString(markup, -1) {
			add(m)
		}
		return out
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				switch a.Key {
				case "title", "onclick", "data-title":
					if strings.Contains(a.Val, PriceMarker) {
						add(a.Val)
					}
				}
			}
		}
		if n.Type == html.TextNode {
			for _, m := range pricePattern.FindAllString(n.Data, -1) {
				add(m)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
