package seats

import (
	"context"
	"errors"
	"log/slog"
)

// Frame is the surface a heuristic scans: either the top-level page or the
// partner iframe hosting the seat table.
type Frame interface {
	// EvalJSON runs a script returning JSON.stringify output and decodes
	// it into out.
	EvalJSON(ctx context.Context, js string, out any) error
	// HTML serialises the frame document.
	HTML(ctx context.Context) (string, error)
}

// Heuristic is one independent seat-detection strategy. TryExtract returns
// the descriptive strings of the seats it found; an empty slice means "this
// strategy saw nothing", not an error. The cascade stops at the first
// heuristic yielding any seats, so order encodes trust.
type Heuristic interface {
	Name() string
	TryExtract(ctx context.Context, f Frame) ([]string, error)
}

// ErrBlocked is reported by the network-bypass heuristic when the partner's
// data endpoint answered with a bot block. The cascade logs it and gives up
// on that heuristic.
var ErrBlocked = errors.New("seats: data endpoint blocked the request")

// Cascade runs heuristics in order and returns the first non-empty,
// deduplicated result along with the winning heuristic's name. Individual
// heuristic failures are logged and skipped.
func Cascade(ctx context.Context, f Frame, heuristics []Heuristic, logger *slog.Logger) ([]string, string) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, h := range heuristics {
		seats, err := h.TryExtract(ctx, f)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				logger.Warn("seats: heuristic blocked", "heuristic", h.Name())
			} else {
				logger.Debug("seats: heuristic failed", "heuristic", h.Name(), "error", err)
			}
			continue
		}
		if deduped := dedupe(seats); len(deduped) > 0 {
			return deduped, h.Name()
		}
	}
	return nil, ""
}

func dedupe(seats []string) []string {
	seen := make(map[string]struct{}, len(seats))
	var out []string
	for _, s := range seats {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DefaultHeuristics returns the production cascade in trust order.
func DefaultHeuristics() []Heuristic {
	return []Heuristic{
		&jsHeuristic{name: "seat-cell-class", script: seatCellClassJS},
		&jsHeuristic{name: "seat-cell-priced-title", script: seatCellPricedTitleJS},
		&jsHeuristic{name: "any-priced-title", script: anyPricedTitleJS},
		&jsHeuristic{name: "clickable-priced", script: clickablePricedJS},
		&jsHeuristic{name: "all-cells-priced", script: allCellsPricedJS},
		&jsHeuristic{name: "generic-free-class", script: genericFreeClassJS},
		&markupHeuristic{},
		&bypassHeuristic{},
		&payloadHeuristic{},
	}
}

// jsHeuristic evaluates a script in the frame and expects a JSON array of
// seat descriptions.
type jsHeuristic struct {
	name   string
	script string
}

func (h *jsHeuristic) Name() string { return h.name }

func (h *jsHeuristic) TryExtract(ctx context.Context, f Frame) ([]string, error) {
	var seats []string
	if err := f.EvalJSON(ctx, h.script, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}

// markupHeuristic regex-extracts price mentions from the rendered markup
// when no structured seat element made it into the DOM.
type markupHeuristic struct{}

func (h *markupHeuristic) Name() string { return "markup-price-scan" }

func (h *markupHeuristic) TryExtract(ctx context.Context, f Frame) ([]string, error) {
	markup, err := f.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return ExtractPricedFromMarkup(markup), nil
}

// bypassHeuristic replays the page's own seat-data request with parameters
// derived from the URL and feeds the payload to the page's own renderer.
type bypassHeuristic struct{}

func (h *bypassHeuristic) Name() string { return "data-endpoint-bypass" }

func (h *bypassHeuristic) TryExtract(ctx context.Context, f Frame) ([]string, error) {
	var res struct {
		Blocked bool     `json:"blocked"`
		Seats   []string `json:"seats"`
	}
	if err := f.EvalJSON(ctx, bypassJS, &res); err != nil {
		return nil, err
	}
	if res.Blocked {
		return nil, ErrBlocked
	}
	return res.Seats, nil
}

// payloadHeuristic finds the inline script payload the page would normally
// pass to its renderer, parses it, and invokes the renderer manually.
type payloadHeuristic struct{}

func (h *payloadHeuristic) Name() string { return "inline-payload-render" }

func (h *payloadHeuristic) TryExtract(ctx context.Context, f Frame) ([]string, error) {
	var seats []string
	if err := f.EvalJSON(ctx, payloadJS, &seats); err != nil {
		return nil, err
	}
	return seats, nil
}
