package seatwatch

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/hazyhaar/seatwatch/internal/config"
	"github.com/hazyhaar/seatwatch/internal/snapshot"
)

func testWatcher(cfg *config.Config) *Watcher {
	return New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Explicit test URLs bypass discovery: qualifying ones pass through with
// fragments stripped, everything else is dropped.
func TestCollectTicketsWithTestURLs(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.TestURLs = []string{
		"https://tce.by/shows.html?base=minsk&data=3811#hall",
		"https://puppet-minsk.by/afisha",
		"https://tce.by/shows.html?base=minsk",
		"https://tce.by/shows.html?base=minsk&data=42",
	}

	w := testWatcher(cfg)
	tickets, cache := w.collectTickets(context.Background(), nil)

	want := []string{
		"https://tce.by/shows.html?base=minsk&data=3811",
		"https://tce.by/shows.html?base=minsk&data=42",
	}
	if !reflect.DeepEqual(tickets, want) {
		t.Errorf("tickets = %v, want %v", tickets, want)
	}
	if cache != nil {
		t.Error("test-URL runs must not touch the discovery cache")
	}
}

// A run that scraped nothing while previous state exists must not replace
// the snapshot with an empty object; the next successful run would then
// re-report every known seat as new.
func TestFinishZeroScrapeKeepsSnapshot(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.DryRun = true
	cfg.SnapshotFile = filepath.Join(t.TempDir(), "seats.json")

	prev := snapshot.Snapshot{
		"https://tce.by/shows.html?base=X&data=1": {
			Title: "Золушка", URL: "https://tce.by/shows.html?base=X&data=1",
			Seats: []string{"Ряд 1, Место 1, Цена 20 руб."}, Count: 1,
		},
	}
	if err := snapshot.Save(cfg.SnapshotFile, prev); err != nil {
		t.Fatal(err)
	}

	w := testWatcher(cfg)
	if err := w.finish(context.Background(), prev, snapshot.Snapshot{}, true, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, ok, err := snapshot.Load(cfg.SnapshotFile)
	if err != nil || !ok {
		t.Fatalf("reload: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, prev) {
		t.Errorf("snapshot was rewritten:\ngot  %v\nwant %v", got, prev)
	}
}

// First runs still persist whatever they saw, including an empty baseline.
func TestFinishFirstRunWritesBaseline(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.DryRun = true
	cfg.SnapshotFile = filepath.Join(t.TempDir(), "seats.json")

	cur := snapshot.Snapshot{
		"https://tce.by/shows.html?base=X&data=2": {
			URL: "https://tce.by/shows.html?base=X&data=2", Count: 0,
		},
	}
	w := testWatcher(cfg)
	if err := w.finish(context.Background(), nil, cur, false, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, ok, err := snapshot.Load(cfg.SnapshotFile)
	if err != nil || !ok {
		t.Fatalf("baseline not written: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, cur) {
		t.Errorf("baseline mismatch:\ngot  %v\nwant %v", got, cur)
	}
}
