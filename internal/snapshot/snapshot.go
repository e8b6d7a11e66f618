// Package snapshot persists the last-known seat availability per ticket URL
// and computes the diff that drives notifications. The store is a flat JSON
// file replaced atomically at the end of every run.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Availability is the per-ticket-URL record. Seats are opaque descriptive
// strings; identity is exact string match.
type Availability struct {
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Seats []string `json:"seats"`
	Count int      `json:"count"`
}

// Snapshot maps a fragment-stripped ticket URL to its availability record.
// Values are fully replaced, never merged.
type Snapshot map[string]Availability

// Load reads a snapshot file. A missing file yields (nil, false, nil): the
// caller treats that as a first run and persists a baseline without
// notifying. A corrupt file is treated the same way, with the parse error
// returned for logging.
func Load(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("snapshot: read %s: %w", path, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("snapshot: parse %s: %w", path, err)
	}
	if snap == nil {
		return nil, false, nil
	}
	return snap, true, nil
}

// Save writes the snapshot atomically: temp file in the same directory,
// then rename over the old content.
func Save(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	return writeAtomic(path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("snapshot: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("snapshot: rename: %w", err)
	}
	return nil
}

// Event describes newly available seats on one ticket page.
type Event struct {
	URL   string
	Title string
	// Added is the string-set difference current minus previous.
	// Order is not guaranteed.
	Added []string
	Count int
}

// Diff compares the current crawl against the previous snapshot. A ticket
// URL that is newly present, or whose seat count increased, yields an Event
// carrying the seats present now but not before. Seats whose descriptive
// string changed without a count change are not detected; the diff is a
// plain string-set difference by design of the upstream data.
func Diff(prev, cur Snapshot) []Event {
	var events []Event
	for url, rec := range cur {
		old, existed := prev[url]
		if existed && rec.Count <= old.Count {
			continue
		}

		added := subtract(rec.Seats, old.Seats)
		if len(added) == 0 {
			continue
		}
		events = append(events, Event{
			URL:   url,
			Title: rec.Title,
			Added: added,
			Count: rec.Count,
		})
	}
	return events
}

// subtract returns the elements of cur not present in prev.
func subtract(cur, prev []string) []string {
	old := make(map[string]struct{}, len(prev))
	for _, s := range prev {
		old[s] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{}, len(cur))
	for _, s := range cur {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		if _, ok := old[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
