package discover

import (
	"context"
	"time"

	"github.com/hazyhaar/seatwatch/internal/linknorm"
)

// categoryPages are the theater's repertoire listings, crawled only when
// there are no known shows and no cached ticket URLs to start from.
var categoryPages = []string{
	linknorm.SiteBase + "/afisha",
	linknorm.SiteBase + "/repertuar",
}

// maxCategoryPages caps pagination per category listing.
const maxCategoryPages = 10

// showAnchorsJS collects same-site anchor hrefs from a listing page. The
// listing renders each show as a card with an overlay anchor, but the card
// structure has changed before, so every same-origin anchor is a candidate
// and normalization filters the noise.
const showAnchorsJS = `() => {
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		out.push(a.getAttribute('href') || '');
	}
	return JSON.stringify(out);
}`

// nextPageJS finds a "next page" style link, preferring explicit rel
// markup over pagination class conventions.
const nextPageJS = `() => {
	const next = document.querySelector('a[rel="next"]') ||
		document.querySelector('.pagination a.next, li.next a, a.page-next');
	return JSON.stringify(next ? next.href : '');
}`

// BootstrapShows crawls the category listing pages and harvests show-page
// URLs. Used only when the run starts with nothing: no remote shows, no
// local shows, no cached tickets. Best-effort throughout; an unreachable
// listing is logged and skipped.
func (d *Discoverer) BootstrapShows(ctx context.Context) []string {
	log := d.cfg.Logger
	var raw []string

	for _, category := range categoryPages {
		pageURL := category
		for page := 0; page < maxCategoryPages; page++ {
			navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavTimeout)
			_, err := d.tab.Navigate(navCtx, pageURL)
			cancel()
			if err != nil {
				log.Warn("discover: category page unreachable", "url", pageURL, "error", err)
				break
			}

			for i := 0; i < d.cfg.ScrollRounds; i++ {
				d.tab.Scroll(ctx, 1200)
				select {
				case <-time.After(400 * time.Millisecond):
				case <-ctx.Done():
					return linknorm.Normalize(raw)
				}
			}

			var hrefs []string
			if err := d.tab.EvalJSON(ctx, showAnchorsJS, &hrefs); err != nil {
				log.Debug("discover: listing anchor scan failed", "url", pageURL, "error", err)
				break
			}
			raw = append(raw, hrefs...)

			var next string
			if err := d.tab.EvalJSON(ctx, nextPageJS, &next); err != nil || next == "" || next == pageURL {
				break
			}
			pageURL = next
		}
	}

	shows := onlyShowPages(linknorm.Normalize(raw))
	log.Info("discover: bootstrap harvested show pages", "count", len(shows))
	return shows
}

// onlyShowPages keeps same-site URLs that are not the listing pages
// themselves. Partner URLs are excluded here; they are picked up later by
// per-show discovery.
func onlyShowPages(urls []string) []string {
	listing := make(map[string]struct{}, len(categoryPages))
	for _, c := range categoryPages {
		listing[c] = struct{}{}
	}
	var out []string
	for _, u := range urls {
		if linknorm.IsPartnerURL(u) {
			continue
		}
		if _, isListing := listing[u]; isListing {
			continue
		}
		if !linknorm.IsSiteURL(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}
