package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
)

// Cache remembers which ticket URLs each show page linked to, so a run can
// skip re-discovery. Opt-in: the default is fresh discovery every run.
type Cache struct {
	// Tickets is the flat set of all known ticket URLs, in discovery order.
	Tickets []string `json:"tickets"`
	// Shows maps a show URL to the ticket URLs discovered on it.
	Shows map[string][]string `json:"shows"`
}

// LoadCache reads the discovery cache. Missing or corrupt files degrade to
// an empty cache; the error is returned for logging only.
func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyCache(), nil
		}
		return emptyCache(), fmt.Errorf("cache: read %s: %w", path, err)
	}

	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return emptyCache(), fmt.Errorf("cache: parse %s: %w", path, err)
	}
	if c.Shows == nil {
		c.Shows = make(map[string][]string)
	}
	return &c, nil
}

// SaveCache writes the cache atomically, same as the snapshot file.
func SaveCache(path string, c *Cache) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	return writeAtomic(path, data)
}

func emptyCache() *Cache {
	return &Cache{Shows: make(map[string][]string)}
}

// Add records a show→ticket association, keeping the flat ticket list
// deduplicated in first-seen order.
func (c *Cache) Add(showURL string, ticketURLs []string) {
	if c.Shows == nil {
		c.Shows = make(map[string][]string)
	}
	known := make(map[string]struct{}, len(c.Tickets))
	for _, t := range c.Tickets {
		known[t] = struct{}{}
	}
	for _, t := range ticketURLs {
		if _, ok := known[t]; !ok {
			known[t] = struct{}{}
			c.Tickets = append(c.Tickets, t)
		}
	}
	c.Shows[showURL] = append([]string(nil), ticketURLs...)
}

// Empty reports whether the cache holds no ticket URLs at all.
func (c *Cache) Empty() bool {
	return c == nil || len(c.Tickets) == 0
}
