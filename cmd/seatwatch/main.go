// Command seatwatch runs one seat-availability monitoring pass over the
// theater's repertoire and exits.
//
// Usage:
//
//	seatwatch                               # env-configured run
//	seatwatch -config seatwatch.yaml        # YAML config plus env overrides
//	seatwatch -url https://...&data=...     # scrape one ticket URL, dry run
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/seatwatch"
	"github.com/hazyhaar/seatwatch/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to seatwatch.yaml config file")
	testURL := flag.String("url", "", "scrape a single ticket URL in dry-run mode")
	dryRun := flag.Bool("dry-run", false, "print notifications instead of sending")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *testURL, *dryRun); err != nil {
		logger.Error("seatwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, testURL string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dryRun {
		cfg.DryRun = true
	}
	if testURL != "" {
		cfg.TestURLs = []string{testURL}
		cfg.DryRun = true
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoCredentials) {
			logger.Error("seatwatch: missing notification credentials; set BOT_TOKEN and CHAT_ID or use -dry-run")
		}
		return err
	}

	// A crawl failure is logged and relayed as a notification inside Run;
	// it is not a process failure. Only configuration errors abort startup.
	w := seatwatch.New(cfg, logger)
	if err := w.Run(ctx); err != nil {
		logger.Warn("seatwatch: run finished with failure", "error", err)
	}
	return nil
}
