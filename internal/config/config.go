// Package config assembles the immutable run configuration from an optional
// YAML file and environment variables. Environment wins over file values;
// the result is constructed once at startup and passed by reference.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrNoCredentials is returned by Validate when notification credentials
// are missing outside dry-run mode. Fatal at startup.
var ErrNoCredentials = errors.New("config: BOT_TOKEN and CHAT_ID must be set")

// Config is the top-level run configuration.
type Config struct {
	// BotToken is the Telegram bot API token.
	BotToken string `yaml:"bot_token"`
	// ChatIDs are the notification targets. Static list, one message
	// stream each.
	ChatIDs []string `yaml:"chat_ids"`

	// DryRun prints messages instead of sending and relaxes the
	// credential requirement.
	DryRun bool `yaml:"dry_run"`
	// UseCache enables the discovery cache file; default is fresh
	// discovery every run.
	UseCache bool `yaml:"use_cache"`
	// UseRemoteShows enables fetching the show list from the remote state
	// branch before falling back to the local file.
	UseRemoteShows bool `yaml:"use_remote_shows"`

	// TestURLs bypasses discovery entirely: only these ticket URLs are
	// scraped. Non-qualifying entries are dropped.
	TestURLs []string `yaml:"test_urls"`

	// RemoteRepo and RemoteBranch locate the remote shows.json:
	// https://raw.githubusercontent.com/{repo}/{branch}/shows.json
	RemoteRepo   string `yaml:"remote_repo"`
	RemoteBranch string `yaml:"remote_branch"`

	ShowsFile    string `yaml:"shows_file"`
	SnapshotFile string `yaml:"snapshot_file"`
	CacheFile    string `yaml:"cache_file"`

	// DumpFailedHTML writes the final page HTML next to the snapshot when
	// a ticket page exhausts every heuristic. Debugging aid.
	DumpFailedHTML bool `yaml:"dump_failed_html"`

	Browser BrowserConfig `yaml:"browser"`
}

// BrowserConfig bounds the per-page waits and the retry budget.
type BrowserConfig struct {
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	ChallengeTimeout time.Duration `yaml:"challenge_timeout"`
	ContentTimeout   time.Duration `yaml:"content_timeout"`
	Attempts         int           `yaml:"attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	ScrollRounds     int           `yaml:"scroll_rounds"`
}

// Load builds the configuration: YAML file when path is non-empty, then
// environment overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.BotToken = v
	}
	if v := os.Getenv("CHAT_ID"); v != "" {
		c.ChatIDs = splitList(v)
	}
	if v, ok := envBool("DRY_RUN"); ok {
		c.DryRun = v
	}
	if v, ok := envBool("USE_CACHE"); ok {
		c.UseCache = v
	}
	if v, ok := envBool("USE_REMOTE_SHOWS"); ok {
		c.UseRemoteShows = v
	}
	if v := os.Getenv("TEST_URLS"); v != "" {
		c.TestURLs = splitList(v)
	}
	if v := os.Getenv("REMOTE_REPO"); v != "" {
		c.RemoteRepo = v
	}
	if v := os.Getenv("REMOTE_SHOWS_BRANCH"); v != "" {
		c.RemoteBranch = v
	}
	if v := os.Getenv("SHOWS_FILE"); v != "" {
		c.ShowsFile = v
	}
	if v := os.Getenv("SNAPSHOT_FILE"); v != "" {
		c.SnapshotFile = v
	}
	if v := os.Getenv("CACHE_FILE"); v != "" {
		c.CacheFile = v
	}
	if v, ok := envBool("DUMP_FAILED_HTML"); ok {
		c.DumpFailedHTML = v
	}
}

func (c *Config) applyDefaults() {
	if c.RemoteRepo == "" {
		c.RemoteRepo = "Dzyamon/tickets"
	}
	if c.RemoteBranch == "" {
		c.RemoteBranch = "state"
	}
	if c.ShowsFile == "" {
		c.ShowsFile = "shows.json"
	}
	if c.SnapshotFile == "" {
		c.SnapshotFile = "seats.json"
	}
	if c.CacheFile == "" {
		c.CacheFile = "tickets_cache.json"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 60 * time.Second
	}
	if c.Browser.ChallengeTimeout <= 0 {
		c.Browser.ChallengeTimeout = 3 * time.Minute
	}
	if c.Browser.ContentTimeout <= 0 {
		c.Browser.ContentTimeout = 60 * time.Second
	}
	if c.Browser.Attempts <= 0 {
		c.Browser.Attempts = 3
	}
	if c.Browser.RetryBackoff <= 0 {
		c.Browser.RetryBackoff = 5 * time.Second
	}
	if c.Browser.ScrollRounds <= 0 {
		c.Browser.ScrollRounds = 3
	}
}

// Validate enforces startup requirements. Missing credentials are fatal
// unless DryRun is set.
func (c *Config) Validate() error {
	if c.DryRun {
		return nil
	}
	if c.BotToken == "" || len(c.ChatIDs) == 0 {
		return ErrNoCredentials
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envBool(key string) (bool, bool) {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
