package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockable maps the network-layer resource type to its config spelling.
// Seat tables and ticket links are markup; pixels, fonts and video only
// slow the crawl down. Stylesheets stay loadable by default because some
// seat maps derive the free/busy state from computed styles.
var blockable = map[string]string{
	"image":      "images",
	"font":       "fonts",
	"media":      "media",
	"stylesheet": "stylesheets",
}

// applyResourceBlocking intercepts requests on the tab and fails the
// configured resource types before they hit the network.
func applyResourceBlocking(page *rod.Page, types []string) error {
	blocked := make(map[string]bool, len(types))
	for _, t := range types {
		blocked[strings.ToLower(t)] = true
	}

	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocksType(blocked, string(h.Request.Type())) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return nil
}

func blocksType(blocked map[string]bool, resType string) bool {
	lower := strings.ToLower(resType)
	if name, ok := blockable[lower]; ok {
		return blocked[name]
	}
	return blocked[lower]
}
