// Package seatwatch orchestrates one monitoring run over the theater's
// repertoire: load the show list, discover partner ticket pages, extract
// seat availability, diff against the previous snapshot, and notify about
// newly purchasable seats. A run is single-threaded; one browser pipeline
// drives every page sequentially, and the snapshot plus optional discovery
// cache are the only things written back.
package seatwatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/seatwatch/internal/browser"
	"github.com/hazyhaar/seatwatch/internal/config"
	"github.com/hazyhaar/seatwatch/internal/discover"
	"github.com/hazyhaar/seatwatch/internal/linknorm"
	"github.com/hazyhaar/seatwatch/internal/notify"
	"github.com/hazyhaar/seatwatch/internal/seats"
	"github.com/hazyhaar/seatwatch/internal/shows"
	"github.com/hazyhaar/seatwatch/internal/snapshot"
)

// Watcher is the top-level orchestrator. Create one per run.
type Watcher struct {
	cfg      *config.Config
	mgr      *browser.Manager
	source   *shows.Source
	notifier *notify.Notifier
	logger   *slog.Logger
}

// New creates a Watcher from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	mgr := browser.NewManager(browser.Config{
		ResourceBlocking: []string{"images", "fonts", "media"},
		Logger:           logger,
	})

	source := shows.New(cfg.RemoteRepo, cfg.RemoteBranch, cfg.ShowsFile,
		cfg.UseRemoteShows, shows.WithLogger(logger))

	notifier := notify.New(cfg.BotToken, cfg.ChatIDs,
		notify.WithDryRun(cfg.DryRun),
		notify.WithLogger(logger))

	return &Watcher{
		cfg:      cfg,
		mgr:      mgr,
		source:   source,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes one full monitoring pass. Per-page failures are isolated;
// the snapshot is written on every path that produced a crawl. An
// unclassified failure is logged and relayed as a best-effort notification
// rather than returned as a hard abort.
func (w *Watcher) Run(ctx context.Context) error {
	log := w.logger

	prev, hadPrev, err := snapshot.Load(w.cfg.SnapshotFile)
	if err != nil {
		log.Warn("run: previous snapshot unreadable, treating as first run",
			"path", w.cfg.SnapshotFile, "error", err)
	}

	if err := w.crawlAndNotify(ctx, prev, hadPrev); err != nil {
		log.Error("run: failed", "error", err)
		w.reportFailure(ctx, err)
		return err
	}
	return nil
}

func (w *Watcher) crawlAndNotify(ctx context.Context, prev snapshot.Snapshot, hadPrev bool) error {
	log := w.logger

	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("run: start browser: %w", err)
	}
	defer w.mgr.Close()

	tab, err := w.mgr.OpenTab(ctx)
	if err != nil {
		return fmt.Errorf("run: open tab: %w", err)
	}
	defer tab.Close()

	tickets, cache := w.collectTickets(ctx, tab)
	if len(tickets) == 0 {
		log.Warn("run: no ticket pages to scrape")
	}

	cur := w.extractAll(ctx, tab, tickets, prev)
	return w.finish(ctx, prev, cur, hadPrev, cache)
}

// finish diffs, notifies and persists. A run that scraped nothing while a
// previous snapshot exists leaves the file untouched: replacing it with an
// empty object would make the next successful run re-report every known
// seat as new.
func (w *Watcher) finish(ctx context.Context, prev, cur snapshot.Snapshot, hadPrev bool, cache *snapshot.Cache) error {
	log := w.logger

	if hadPrev && len(cur) == 0 {
		log.Warn("run: nothing scraped, keeping previous snapshot untouched",
			"path", w.cfg.SnapshotFile)
		return nil
	}

	if hadPrev {
		events := snapshot.Diff(prev, cur)
		if len(events) == 0 {
			log.Info("run: no new seats")
		} else {
			log.Info("run: new seats detected", "events", len(events))
			msg := notify.FormatEvents(events)
			if err := w.notifier.Broadcast(ctx, msg); err != nil {
				log.Warn("run: notification partially failed", "error", err)
			}
		}
	} else {
		log.Info("run: first run, persisting baseline without notifying",
			"tickets", len(cur))
	}

	if err := snapshot.Save(w.cfg.SnapshotFile, cur); err != nil {
		return fmt.Errorf("run: save snapshot: %w", err)
	}
	log.Info("run: snapshot saved", "path", w.cfg.SnapshotFile, "tickets", len(cur))

	if w.cfg.UseCache && cache != nil {
		if err := snapshot.SaveCache(w.cfg.CacheFile, cache); err != nil {
			log.Warn("run: save cache failed", "path", w.cfg.CacheFile, "error", err)
		}
	}
	return nil
}

// collectTickets produces the ticket URLs for this run. Explicit test URLs
// bypass discovery entirely; a warm cache (when enabled) skips it; otherwise
// every show page is scanned, bootstrapping the show list from the category
// listings when nothing else is available.
func (w *Watcher) collectTickets(ctx context.Context, tab *browser.Tab) ([]string, *snapshot.Cache) {
	log := w.logger

	if len(w.cfg.TestURLs) > 0 {
		var tickets []string
		for _, u := range w.cfg.TestURLs {
			u = linknorm.StripFragment(u)
			if linknorm.IsTicketURL(u) {
				tickets = append(tickets, u)
			} else {
				log.Warn("run: test URL does not qualify, dropped", "url", u)
			}
		}
		log.Info("run: using explicit test URLs", "count", len(tickets))
		return tickets, nil
	}

	cache := &snapshot.Cache{}
	if w.cfg.UseCache {
		c, err := snapshot.LoadCache(w.cfg.CacheFile)
		if err != nil {
			log.Warn("run: cache unreadable, rediscovering", "error", err)
		}
		cache = c
		if !cache.Empty() {
			log.Info("run: using cached ticket URLs", "count", len(cache.Tickets))
			return cache.Tickets, cache
		}
	}

	d := discover.New(w.mgr, tab, discover.Config{
		ScrollRounds: w.cfg.Browser.ScrollRounds,
		NavTimeout:   w.cfg.Browser.NavTimeout,
		Logger:       log,
	})

	showURLs := w.source.Load(ctx)
	if len(showURLs) == 0 {
		log.Info("run: no shows known, bootstrapping from category listings")
		showURLs = d.BootstrapShows(ctx)
	}

	var tickets []string
	seen := make(map[string]struct{})
	for _, showURL := range showURLs {
		links, err := d.TicketLinks(ctx, showURL)
		if err != nil {
			log.Warn("run: show page skipped", "url", showURL, "error", err)
			continue
		}
		cache.Add(showURL, links)
		for _, l := range links {
			if _, dup := seen[l]; dup {
				continue
			}
			seen[l] = struct{}{}
			tickets = append(tickets, l)
		}
	}
	log.Info("run: discovery finished", "shows", len(showURLs), "tickets", len(tickets))
	return tickets, cache
}

// extractAll scrapes every ticket page sequentially. A page that exhausts
// its retry budget is skipped; its previous record, if any, is carried
// forward so the next successful scrape does not re-report old seats as new.
func (w *Watcher) extractAll(ctx context.Context, tab *browser.Tab, tickets []string, prev snapshot.Snapshot) snapshot.Snapshot {
	log := w.logger

	dumpDir := ""
	if w.cfg.DumpFailedHTML {
		dumpDir = "."
	}
	ex := seats.New(tab, seats.Config{
		NavTimeout:       w.cfg.Browser.NavTimeout,
		ChallengeTimeout: w.cfg.Browser.ChallengeTimeout,
		ContentTimeout:   w.cfg.Browser.ContentTimeout,
		Attempts:         w.cfg.Browser.Attempts,
		RetryBackoff:     w.cfg.Browser.RetryBackoff,
		DumpDir:          dumpDir,
		Logger:           log,
	})

	cur := make(snapshot.Snapshot, len(tickets))
	for _, ticketURL := range tickets {
		av, err := ex.Extract(ctx, ticketURL)
		if err != nil {
			log.Warn("run: ticket page skipped", "url", ticketURL, "error", err)
			key := linknorm.StripFragment(ticketURL)
			if old, ok := prev[key]; ok {
				cur[key] = old
			}
			continue
		}
		cur[av.URL] = av
	}
	return cur
}

// reportFailure relays a run-level failure to the configured chats,
// best-effort. Delivery problems here are only logged.
func (w *Watcher) reportFailure(ctx context.Context, runErr error) {
	msg := fmt.Sprintf("⚠️ Seat monitoring run failed: %v", runErr)
	if err := w.notifier.Broadcast(ctx, msg); err != nil {
		w.logger.Warn("run: failure notification undeliverable", "error", err)
	}
}
