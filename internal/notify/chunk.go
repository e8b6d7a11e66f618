// Package notify formats seat-availability events and delivers them to
// Telegram chats, splitting messages that exceed the transport cap.
package notify

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/seatwatch/internal/snapshot"
)

const (
	// telegramTextLimit is the hard cap of the Telegram sendMessage API.
	telegramTextLimit = 4096
	// chunkBudget leaves headroom for the "Part i/N" header line.
	chunkBudget = 3500
	// maxSeatsListed caps the per-event seat list; the rest collapses into
	// a remaining-count line.
	maxSeatsListed = 10
)

// seat strings come from third-party title attributes and inline handlers;
// strip any markup before they reach an outbound message.
var sanitizer = bluemonday.StrictPolicy()

func cleanSeat(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}

// FormatEvents renders diff events into one message body, newest seats
// first per event. Events with no added seats render nothing.
func FormatEvents(events []snapshot.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if len(ev.Added) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		title := ev.Title
		if title == "" {
			title = ev.URL
		}
		fmt.Fprintf(&b, "🎭 %s\n%s\n", title, ev.URL)
		fmt.Fprintf(&b, "New seats: %d\n", len(ev.Added))

		listed := ev.Added
		if len(listed) > maxSeatsListed {
			listed = listed[:maxSeatsListed]
		}
		for _, seat := range listed {
			fmt.Fprintf(&b, "• %s\n", cleanSeat(seat))
		}
		if rest := len(ev.Added) - len(listed); rest > 0 {
			fmt.Fprintf(&b, "… and %d more\n", rest)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Chunk splits a message into parts no longer than the limit, breaking on
// line boundaries. Parts beyond the first carry a "Part i/N" header; the
// body lines concatenated across parts reproduce the original sequence.
// A single line longer than the limit is hard-cut.
func Chunk(msg string, limit int) []string {
	if limit <= 0 {
		limit = chunkBudget
	}
	if len(msg) <= limit {
		return []string{msg}
	}

	lines := strings.Split(msg, "\n")
	var parts []string
	var cur strings.Builder
	for _, line := range lines {
		for len(line) > limit {
			if cur.Len() > 0 {
				parts = append(parts, strings.TrimRight(cur.String(), "\n"))
				cur.Reset()
			}
			cut := runeCut(line, limit)
			parts = append(parts, line[:cut])
			line = line[cut:]
		}
		// +1 for the newline separator.
		if cur.Len() > 0 && cur.Len()+len(line)+1 > limit {
			parts = append(parts, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
		}
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	if cur.Len() > 0 {
		parts = append(parts, strings.TrimRight(cur.String(), "\n"))
	}

	if len(parts) == 1 {
		return parts
	}
	total := len(parts)
	for i := range parts {
		parts[i] = fmt.Sprintf("Part %d/%d\n%s", i+1, total, parts[i])
	}
	return parts
}

// runeCut returns the largest byte offset <= limit that does not split a
// rune. Seat strings are Cyrillic, so a byte-offset cut would corrupt the
// text and Telegram rejects invalid UTF-8.
func runeCut(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}
