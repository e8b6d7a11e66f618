package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SnapshotFile != "seats.json" || cfg.ShowsFile != "shows.json" {
		t.Errorf("file defaults wrong: %+v", cfg)
	}
	if cfg.Browser.Attempts != 3 || cfg.Browser.RetryBackoff != 5*time.Second {
		t.Errorf("retry defaults wrong: %+v", cfg.Browser)
	}
	if cfg.UseCache || cfg.UseRemoteShows {
		t.Error("cache and remote source must default off")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "seatwatch.yaml")
	os.WriteFile(path, []byte("bot_token: from-file\nchat_ids: [\"1\"]\nuse_cache: true\n"), 0o644)

	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("CHAT_ID", "10, 20 ,")
	t.Setenv("USE_CACHE", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.BotToken != "from-env" {
		t.Errorf("BotToken = %q, want env value", cfg.BotToken)
	}
	if len(cfg.ChatIDs) != 2 || cfg.ChatIDs[0] != "10" || cfg.ChatIDs[1] != "20" {
		t.Errorf("ChatIDs = %v", cfg.ChatIDs)
	}
	if cfg.UseCache {
		t.Error("env USE_CACHE=false must override file true")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg := &Config{}
	if err := cfg.Validate(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("missing creds: got %v, want ErrNoCredentials", err)
	}

	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("dry run must not require credentials: %v", err)
	}

	cfg = &Config{BotToken: "t", ChatIDs: []string{"1"}}
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete config rejected: %v", err)
	}
}

func TestLoadBadFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("explicit missing config file must error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte(":\t:::"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("unparseable config file must error")
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "CHAT_ID", "DRY_RUN", "USE_CACHE", "USE_REMOTE_SHOWS",
		"TEST_URLS", "REMOTE_REPO", "REMOTE_SHOWS_BRANCH",
		"SHOWS_FILE", "SNAPSHOT_FILE", "CACHE_FILE", "DUMP_FAILED_HTML",
	} {
		t.Setenv(k, "")
	}
}
