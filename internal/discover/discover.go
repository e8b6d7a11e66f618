// Package discover finds qualifying ticket URLs on the theater's show
// pages. The markup is inconsistent: the link may be a plain anchor, an
// iframe, a data attribute, an onclick handler, or a script payload, and
// some anchors only render after scrolling. Discovery scans all of these
// surfaces and rescans after scroll rounds.
package discover

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/seatwatch/internal/browser"
	"github.com/hazyhaar/seatwatch/internal/linknorm"
)

// Config bounds discovery behaviour.
type Config struct {
	// ScrollRounds is the number of scroll-then-rescan passes for lazily
	// rendered anchors.
	ScrollRounds int
	// NavTimeout bounds each page load.
	NavTimeout time.Duration
	// MaxFollows caps the purchase-keyword one-hop follows per show page.
	MaxFollows int
	Logger     *slog.Logger
}

func (c *Config) defaults() {
	if c.ScrollRounds <= 0 {
		c.ScrollRounds = 3
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.MaxFollows <= 0 {
		c.MaxFollows = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Discoverer drives one tab through show pages. One-hop follows open
// short-lived extra tabs on the same browser.
type Discoverer struct {
	mgr *browser.Manager
	tab *browser.Tab
	cfg Config
}

// New creates a Discoverer on an open tab.
func New(mgr *browser.Manager, tab *browser.Tab, cfg Config) *Discoverer {
	cfg.defaults()
	return &Discoverer{mgr: mgr, tab: tab, cfg: cfg}
}

// surfaceScanJS collects candidate strings from every surface the ticket
// link has been observed on: anchors, pattern-restricted anchors, iframe
// sources, data attributes, and onclick handler text.
const surfaceScanJS = `() => {
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) out.push(a.href);
	for (const a of document.querySelectorAll("a[href*='shows.html']")) out.push(a.href);
	for (const f of document.querySelectorAll('iframe[src]')) out.push(f.src);
	for (const el of document.querySelectorAll('[data-url], [data-href], [data-link]')) {
		out.push(el.getAttribute('data-url') || el.getAttribute('data-href') ||
			el.getAttribute('data-link') || '');
	}
	for (const el of document.querySelectorAll('[onclick]')) {
		out.push(el.getAttribute('onclick') || '');
	}
	return JSON.stringify(out);
}`

// keywordAnchorsJS returns hrefs of anchors whose text signals purchase
// intent.
const keywordAnchorsJS = `() => {
	const kw = /купить|билет|квіт|набыць|buy|ticket/i;
	const out = [];
	for (const a of document.querySelectorAll('a[href]')) {
		if (kw.test(a.textContent || '')) out.push(a.href);
	}
	return JSON.stringify(out);
}`

// revealTicketsJS clicks an in-page "buy here" control when one exists.
// Only controls that cannot navigate away are clicked.
const revealTicketsJS = `() => {
	const kw = /купить|билет|квіт|набыць|buy|ticket/i;
	for (const el of document.querySelectorAll('a, button')) {
		if (!kw.test(el.textContent || '')) continue;
		const href = el.getAttribute('href') || '';
		const inert = el.tagName === 'BUTTON' || href === '' ||
			href.startsWith('#') || href.startsWith('javascript');
		if (inert && el.offsetParent !== null) {
			el.click();
			return JSON.stringify(true);
		}
	}
	return JSON.stringify(false);
}`

// TicketLinks loads a show page and returns the qualifying ticket URLs
// found on it. Zero results is a normal outcome since not every show sells
// tickets. A navigation error is returned so the caller can skip this show
// and continue.
func (d *Discoverer) TicketLinks(ctx context.Context, showURL string) ([]string, error) {
	log := d.cfg.Logger

	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavTimeout)
	_, err := d.tab.Navigate(navCtx, showURL)
	cancel()
	if err != nil {
		return nil, err
	}

	d.revealTicketSection(ctx)

	found := make(map[string]struct{})
	var ordered []string
	record := func(urls []string) {
		for _, u := range urls {
			if _, dup := found[u]; dup {
				continue
			}
			found[u] = struct{}{}
			ordered = append(ordered, u)
		}
	}

	record(d.scanSurfaces(ctx))
	for i := 0; i < d.cfg.ScrollRounds; i++ {
		d.tab.Scroll(ctx, 1200)
		select {
		case <-time.After(400 * time.Millisecond):
		case <-ctx.Done():
			return ordered, nil
		}
		record(d.scanSurfaces(ctx))
	}

	record(d.followKeywordAnchors(ctx))

	if len(ordered) == 0 {
		log.Info("discover: no ticket links on show page", "url", showURL)
	} else {
		log.Info("discover: ticket links found", "url", showURL, "count", len(ordered))
	}
	return ordered, nil
}

// scanSurfaces collects candidates from the DOM surfaces, the live iframe
// URLs, and a full-markup pattern scan.
func (d *Discoverer) scanSurfaces(ctx context.Context) []string {
	var raw []string
	if err := d.tab.EvalJSON(ctx, surfaceScanJS, &raw); err != nil {
		d.cfg.Logger.Debug("discover: surface scan failed", "error", err)
	}

	// Iframes whose src was set after load carry the live document URL.
	for _, fr := range d.tab.Frames(ctx) {
		raw = append(raw, browser.FrameURL(fr))
	}

	urls := CandidateTicketURLs(raw)

	if markup, err := d.tab.HTML(ctx); err == nil {
		urls = append(urls, ScanMarkup(markup)...)
	}
	return dedupe(urls)
}

// revealTicketSection best-effort advances the page to its tickets block:
// set the fragment, give the page a moment, then press a non-navigating
// "buy here" control if present.
func (d *Discoverer) revealTicketSection(ctx context.Context) {
	if err := d.tab.EvalJSON(ctx, `() => { location.hash = '#tickets'; return JSON.stringify(true); }`, nil); err != nil {
		return
	}
	select {
	case <-time.After(500 * time.Millisecond):
	case <-ctx.Done():
		return
	}

	var clicked bool
	if err := d.tab.EvalJSON(ctx, revealTicketsJS, &clicked); err == nil && clicked {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
	}
}

// followKeywordAnchors scans anchor text for purchase intent. A qualifying
// href is recorded directly; anything else is followed exactly one hop in a
// throwaway tab and that page is re-scanned. No recursion.
func (d *Discoverer) followKeywordAnchors(ctx context.Context) []string {
	var hrefs []string
	if err := d.tab.EvalJSON(ctx, keywordAnchorsJS, &hrefs); err != nil {
		return nil
	}

	var out []string
	follows := 0
	for _, href := range hrefs {
		href = linknorm.StripFragment(href)
		if linknorm.IsTicketURL(href) {
			out = append(out, href)
			continue
		}
		if follows >= d.cfg.MaxFollows {
			continue
		}
		follows++
		out = append(out, d.followOneHop(ctx, href)...)
	}
	return dedupe(out)
}

func (d *Discoverer) followOneHop(ctx context.Context, href string) []string {
	log := d.cfg.Logger

	tab, err := d.mgr.OpenTab(ctx)
	if err != nil {
		log.Warn("discover: one-hop tab failed", "error", err)
		return nil
	}
	defer tab.Close()

	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavTimeout)
	defer cancel()
	if _, err := tab.Navigate(navCtx, href); err != nil {
		log.Debug("discover: one-hop navigate failed", "url", href, "error", err)
		return nil
	}

	var raw []string
	if err := tab.EvalJSON(ctx, surfaceScanJS, &raw); err != nil {
		return nil
	}
	for _, fr := range tab.Frames(ctx) {
		raw = append(raw, browser.FrameURL(fr))
	}
	return CandidateTicketURLs(raw)
}
