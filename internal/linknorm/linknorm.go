// Package linknorm canonicalizes and classifies URLs found on the theater
// site. Every function is total: malformed input classifies as "not
// matching", never as an error.
package linknorm

import (
	"net/url"
	"strings"
)

// SiteBase is the theater's own origin. Relative links resolve against it.
const SiteBase = "https://puppet-minsk.by"

// NoisePath is the repertoire index. It links back to itself from every
// show page and carries no ticket information, so it is always discarded.
const NoisePath = "/afisha"

// TicketEndpoint is the path suffix of the partner's seat-map page.
const TicketEndpoint = "shows.html"

// partnerDomains is the allow-list of ticketing partner hosts. A URL on one
// of these hosts is a partner URL; only the strict shows.html?base=&data=
// form qualifies for seat extraction.
var partnerDomains = []string{"tce.by"}

// requiredTicketParams are the query parameters a qualifying ticket URL
// must carry. base identifies the venue, data the performance.
var requiredTicketParams = []string{"base", "data"}

// StripFragment removes the #fragment part of a URL string. Snapshot keys,
// dedup and comparison all operate on fragment-stripped URLs.
func StripFragment(raw string) string {
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		return raw[:i]
	}
	return raw
}

// Normalize resolves raw links against SiteBase, strips fragments, drops
// the noise path in any spelling, and dedupes preserving first-seen order.
func Normalize(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	var out []string
	for _, r := range raw {
		u, ok := normalizeOne(r)
		if !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func normalizeOne(raw string) (string, bool) {
	raw = strings.TrimSpace(StripFragment(raw))
	if raw == "" {
		return "", false
	}

	base, err := url.Parse(SiteBase)
	if err != nil {
		return "", false
	}
	u, err := base.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	if isNoise(u) {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}

// isNoise reports whether u is the repertoire index, regardless of how the
// link was spelled (relative, absolute, trailing slash).
func isNoise(u *url.URL) bool {
	if !strings.EqualFold(u.Host, mustHost(SiteBase)) {
		return false
	}
	p := strings.TrimSuffix(u.Path, "/")
	return strings.EqualFold(p, NoisePath)
}

func mustHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

// IsSiteURL reports whether the URL lives on the theater's own host.
func IsSiteURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, mustHost(SiteBase))
}

// IsPartnerURL reports whether the URL's host contains one of the partner
// ticketing domains. This is the coarse check; most partner links are
// generic site links, not seat maps.
func IsPartnerURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range partnerDomains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// IsTicketURL reports whether the URL qualifies for seat extraction: partner
// host, path ending in the ticket endpoint, and both required query
// parameters present. Anything looser is a plain partner link and is
// discarded by discovery.
func IsTicketURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if !IsPartnerURL(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	if !strings.HasSuffix(path, TicketEndpoint) {
		return false
	}
	q := u.Query()
	for _, p := range requiredTicketParams {
		if q.Get(p) == "" {
			return false
		}
	}
	return true
}
