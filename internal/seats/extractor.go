// Package seats extracts the set of currently purchasable seats from a
// partner ticket page. Each page load walks a fixed state machine:
// Loading → ChallengeCheck → ChallengeWaiting → ContentWaiting →
// FrameSelection → SeatScan, with a bounded retry budget around loading
// failures. Zero seats is a valid outcome; it usually means the
// anti-automation challenge withheld the content.
package seats

import (
	"context"
	"crypto/sha1"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/seatwatch/internal/browser"
	"github.com/hazyhaar/seatwatch/internal/linknorm"
	"github.com/hazyhaar/seatwatch/internal/snapshot"
)

// minVisibleText is the body-text length treated as evidence of real
// content when neither a seat table nor a heading is present.
const minVisibleText = 200

// seatTableSelector matches the partner's hall table and its cells.
const seatTableSelector = "table#myHall, td.place"

// Config bounds the extractor's waits and retries.
type Config struct {
	NavTimeout       time.Duration
	ChallengeTimeout time.Duration
	ContentTimeout   time.Duration
	Attempts         int
	RetryBackoff     time.Duration
	// DumpDir, when set, receives the final page HTML of ticket pages
	// that exhausted every heuristic. Debugging aid.
	DumpDir string
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 60 * time.Second
	}
	if c.ChallengeTimeout <= 0 {
		c.ChallengeTimeout = 3 * time.Minute
	}
	if c.ContentTimeout <= 0 {
		c.ContentTimeout = 60 * time.Second
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Extractor drives one browser tab through ticket pages sequentially.
type Extractor struct {
	tab        *browser.Tab
	cfg        Config
	heuristics []Heuristic
}

// New creates an Extractor on an open tab. With no explicit heuristics the
// default cascade is used.
func New(tab *browser.Tab, cfg Config, heuristics ...Heuristic) *Extractor {
	cfg.defaults()
	if len(heuristics) == 0 {
		heuristics = DefaultHeuristics()
	}
	return &Extractor{tab: tab, cfg: cfg, heuristics: heuristics}
}

// Extract navigates to a ticket URL and returns its availability record.
// Loading failures are retried up to the attempt budget with a fixed
// backoff; exhausting the budget returns the last error so the caller can
// skip this one page and continue. A panic inside the browser layer is
// recovered and reported as an error at this page's boundary.
func (e *Extractor) Extract(ctx context.Context, ticketURL string) (av snapshot.Availability, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("seats: panic extracting %s: %v", ticketURL, r)
		}
	}()

	log := e.cfg.Logger
	var lastErr error
	for attempt := 1; attempt <= e.cfg.Attempts; attempt++ {
		if attempt > 1 {
			log.Info("seats: retrying", "url", ticketURL, "attempt", attempt)
			select {
			case <-time.After(e.cfg.RetryBackoff):
			case <-ctx.Done():
				return snapshot.Availability{}, ctx.Err()
			}
		}

		av, err := e.extractOnce(ctx, ticketURL)
		if err != nil {
			lastErr = err
			log.Warn("seats: attempt failed", "url", ticketURL, "attempt", attempt, "error", err)
			continue
		}
		return av, nil
	}
	return snapshot.Availability{}, fmt.Errorf("seats: %d attempts exhausted for %s: %w",
		e.cfg.Attempts, ticketURL, lastErr)
}

func (e *Extractor) extractOnce(ctx context.Context, ticketURL string) (snapshot.Availability, error) {
	log := e.cfg.Logger

	// Loading.
	navCtx, cancel := context.WithTimeout(ctx, e.cfg.NavTimeout)
	status, err := e.tab.Navigate(navCtx, ticketURL)
	cancel()
	if err != nil {
		return snapshot.Availability{}, err
	}
	if status >= 400 {
		return snapshot.Availability{}, fmt.Errorf("seats: %s returned status %d", ticketURL, status)
	}

	// ChallengeCheck: let the network settle, then look for challenge
	// banners in the visible text.
	idleCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	e.tab.WaitNetworkIdle(idleCtx, 600*time.Millisecond)
	cancel()

	if HasChallengeMarkers(e.tab.VisibleText(ctx)) {
		log.Info("seats: challenge detected, waiting it out", "url", ticketURL)
		e.waitChallenge(ctx)
	}

	// ContentWaiting: evidence of real content, one reload fallback.
	if !e.waitContent(ctx) {
		log.Info("seats: no content evidence, reloading once", "url", ticketURL)
		if err := e.tab.Reload(ctx); err != nil {
			log.Warn("seats: reload failed", "url", ticketURL, "error", err)
		} else {
			e.waitContent(ctx)
		}
	}

	// FrameSelection + SeatScan.
	frame := e.selectFrame(ctx)
	found, winner := Cascade(ctx, frame, e.heuristics, log)

	av := snapshot.Availability{
		Title: e.pageTitle(ctx),
		URL:   linknorm.StripFragment(ticketURL),
		Seats: found,
		Count: len(found),
	}

	if len(found) == 0 {
		log.Info("seats: no purchasable seats found", "url", ticketURL)
		e.dumpFailedHTML(ctx, ticketURL)
	} else {
		log.Info("seats: extracted", "url", ticketURL, "count", len(found), "heuristic", winner)
	}
	return av, nil
}

// waitChallenge polls until the challenge markers disappear and either the
// seat table or a heading shows up. Timing out is not a failure; the run
// proceeds best-effort.
func (e *Extractor) waitChallenge(ctx context.Context) {
	deadline := time.Now().Add(e.cfg.ChallengeTimeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		text := e.tab.VisibleText(ctx)
		if !HasChallengeMarkers(text) &&
			(e.tab.Has(ctx, seatTableSelector) || e.tab.Has(ctx, "h1")) {
			return
		}
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
	}
	e.cfg.Logger.Warn("seats: challenge wait timed out, proceeding best-effort")
}

// waitContent polls for any evidence of real content: a seat table, a
// heading, or a non-trivial amount of body text.
func (e *Extractor) waitContent(ctx context.Context) bool {
	deadline := time.Now().Add(e.cfg.ContentTimeout)
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if e.tab.Has(ctx, seatTableSelector) || e.tab.Has(ctx, "h1") ||
			len(e.tab.VisibleText(ctx)) >= minVisibleText {
			return true
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// selectFrame picks the scan surface. The partner renders the hall inside
// an embedded frame on some show pages; prefer a frame whose URL matches
// the ticket endpoint pattern, then any partner-domain frame, then the
// top-level page.
func (e *Extractor) selectFrame(ctx context.Context) Frame {
	frames := e.tab.Frames(ctx)

	for _, fr := range frames {
		if linknorm.IsTicketURL(browser.FrameURL(fr)) {
			return frameSurface{fr}
		}
	}
	for _, fr := range frames {
		if linknorm.IsPartnerURL(browser.FrameURL(fr)) {
			return frameSurface{fr}
		}
	}
	return e.tab
}

func (e *Extractor) pageTitle(ctx context.Context) string {
	var title string
	err := e.tab.EvalJSON(ctx, `() => {
		const h1 = document.querySelector('h1');
		const t = (h1 && h1.textContent.trim()) || document.title || '';
		return JSON.stringify(t.trim());
	}`, &title)
	if err != nil {
		return ""
	}
	return title
}

func (e *Extractor) dumpFailedHTML(ctx context.Context, ticketURL string) {
	if e.cfg.DumpDir == "" {
		return
	}
	markup, err := e.tab.HTML(ctx)
	if err != nil {
		return
	}
	name := fmt.Sprintf("failed_%x.html", sha1.Sum([]byte(ticketURL)))
	path := filepath.Join(e.cfg.DumpDir, name)
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		e.cfg.Logger.Warn("seats: dump failed page", "path", path, "error", err)
		return
	}
	e.cfg.Logger.Info("seats: dumped failed page", "url", ticketURL, "path", path)
}

// frameSurface adapts an iframe's Rod page to the Frame interface.
type frameSurface struct {
	page *rod.Page
}

func (f frameSurface) EvalJSON(ctx context.Context, js string, out any) error {
	return browser.EvalJSON(ctx, f.page, js, out)
}

func (f frameSurface) HTML(ctx context.Context) (string, error) {
	res, err := f.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("seats: frame HTML: %w", err)
	}
	return res.Value.Str(), nil
}

var _ Frame = (*browser.Tab)(nil)
var _ Frame = frameSurface{}
