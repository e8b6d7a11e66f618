// Package shows supplies the current set of show URLs. Preference order:
// remote state-branch snapshot (when enabled), local file, empty. Every
// fetch or parse failure degrades silently to the next source and is only
// logged.
package shows

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hazyhaar/seatwatch/internal/linknorm"
)

// Source loads show URLs.
type Source struct {
	remoteURL string
	localPath string
	useRemote bool
	client    *http.Client
	logger    *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets a custom HTTP client.
func WithClient(c *http.Client) Option {
	return func(s *Source) { s.client = c }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) { s.logger = l }
}

// WithRemoteURL overrides the computed raw.githubusercontent URL. Tests
// point this at a local server.
func WithRemoteURL(u string) Option {
	return func(s *Source) { s.remoteURL = u }
}

// New creates a Source. repo/branch locate the remote shows.json; localPath
// is the fallback file. useRemote gates the remote fetch entirely.
func New(repo, branch, localPath string, useRemote bool, opts ...Option) *Source {
	s := &Source{
		remoteURL: fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/shows.json", repo, branch),
		localPath: localPath,
		useRemote: useRemote,
		client:    &http.Client{Timeout: 20 * time.Second},
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load returns normalized show URLs. Never returns an error: an unreachable
// remote falls back to the local file, a missing local file to an empty
// list.
func (s *Source) Load(ctx context.Context) []string {
	if s.useRemote {
		if links, err := s.loadRemote(ctx); err != nil {
			s.logger.Warn("shows: remote fetch failed, falling back to local file", "error", err)
		} else {
			s.logger.Info("shows: loaded from remote", "count", len(links))
			return links
		}
	}

	links, err := s.loadLocal()
	if err != nil {
		s.logger.Warn("shows: local file unavailable", "path", s.localPath, "error", err)
		return nil
	}
	s.logger.Info("shows: loaded from local file", "path", s.localPath, "count", len(links))
	return links
}

func (s *Source) loadRemote(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return nil, fmt.Errorf("shows: new request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shows: get %s: %w", s.remoteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shows: remote status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("shows: read body: %w", err)
	}
	return parseShowList(data)
}

func (s *Source) loadLocal() ([]string, error) {
	data, err := os.ReadFile(s.localPath)
	if err != nil {
		return nil, err
	}
	return parseShowList(data)
}

// parseShowList accepts both historical formats: a JSON array of URL
// strings, or an array of objects carrying a "link" field (plus ignored
// metadata such as titles).
func parseShowList(data []byte) ([]string, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("shows: parse list: %w", err)
	}

	var raw []string
	for _, e := range entries {
		var link string
		if err := json.Unmarshal(e, &link); err == nil {
			raw = append(raw, link)
			continue
		}
		var obj struct {
			Link string `json:"link"`
		}
		if err := json.Unmarshal(e, &obj); err == nil && obj.Link != "" {
			raw = append(raw, obj.Link)
		}
	}
	return linknorm.Normalize(raw), nil
}
