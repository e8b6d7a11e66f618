package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps a Rod page with crawl-specific setup: stealth, resource
// blocking, navigation with HTTP status capture, and JSON-returning script
// evaluation.
type Tab struct {
	Page    *rod.Page
	PageURL string
	manager *Manager
}

// OpenTab creates a new stealth tab. The caller navigates it explicitly.
func (m *Manager) OpenTab(ctx context.Context) (*Tab, error) {
	b := m.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if m.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: m.cfg.UserAgent,
		}); err != nil {
			m.cfg.Logger.Warn("browser: user agent override failed", "error", err)
		}
	}

	if len(m.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, m.cfg.ResourceBlocking); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	return &Tab{Page: page, manager: m}, nil
}

// Navigate loads a URL and returns the HTTP status of the document
// response. The wait is bounded by ctx; a navigation error or expired
// context is returned as an error for the caller's retry policy.
func (t *Tab) Navigate(ctx context.Context, pageURL string) (int, error) {
	page := t.Page.Context(ctx)

	status := 0
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = e.Response.Status
			return true
		}
		return false
	})

	if err := page.Navigate(pageURL); err != nil {
		return 0, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return status, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}

	t.PageURL = pageURL
	return status, nil
}

// Reload reloads the current page and waits for the load event.
func (t *Tab) Reload(ctx context.Context) error {
	page := t.Page.Context(ctx)
	if err := page.Reload(); err != nil {
		return fmt.Errorf("browser: reload: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("browser: reload wait: %w", err)
	}
	return nil
}

// WaitNetworkIdle blocks until no requests were in flight for the given
// quiet window, bounded by ctx.
func (t *Tab) WaitNetworkIdle(ctx context.Context, quiet time.Duration) {
	page := t.Page.Context(ctx)
	wait := page.WaitRequestIdle(quiet, nil, nil, nil)
	wait()
}

// EvalJSON evaluates a script that returns JSON.stringify output and
// unmarshals it into out. A nil out discards the result.
func (t *Tab) EvalJSON(ctx context.Context, js string, out any) error {
	return EvalJSON(ctx, t.Page, js, out)
}

// EvalJSON is the page-level variant used for iframes, which are plain Rod
// pages.
func EvalJSON(ctx context.Context, page *rod.Page, js string, out any) error {
	res, err := page.Context(ctx).Eval(js)
	if err != nil {
		return fmt.Errorf("browser: eval: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.Str()), out); err != nil {
		return fmt.Errorf("browser: decode eval result: %w", err)
	}
	return nil
}

// VisibleText returns the rendered body text, empty on any failure.
func (t *Tab) VisibleText(ctx context.Context) string {
	res, err := t.Page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ''`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// HTML serialises the document as outer HTML.
func (t *Tab) HTML(ctx context.Context) (string, error) {
	res, err := t.Page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("browser: get HTML: %w", err)
	}
	return res.Value.Str(), nil
}

// Has reports whether any element matches the selector right now.
func (t *Tab) Has(ctx context.Context, selector string) bool {
	has, _, err := t.Page.Context(ctx).Has(selector)
	return err == nil && has
}

// Scroll scrolls the page down by dy pixels to trigger lazy rendering.
func (t *Tab) Scroll(ctx context.Context, dy float64) {
	if err := t.Page.Context(ctx).Mouse.Scroll(0, dy, 1); err != nil {
		t.manager.cfg.Logger.Debug("browser: scroll failed", "error", err)
	}
}

// Frames returns the pages of all iframes currently in the document.
// Frames that cannot be resolved are skipped.
func (t *Tab) Frames(ctx context.Context) []*rod.Page {
	els, err := t.Page.Context(ctx).Elements("iframe")
	if err != nil {
		return nil
	}
	var frames []*rod.Page
	for _, el := range els {
		fr, err := el.Frame()
		if err != nil {
			continue
		}
		frames = append(frames, fr)
	}
	return frames
}

// FrameURL returns the document URL of a frame, empty on failure.
func FrameURL(page *rod.Page) string {
	info, err := page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
