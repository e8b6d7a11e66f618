package snapshot

import (
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

func TestDiffAddedSeats(t *testing.T) {
	prev := Snapshot{
		"https://tce.by/shows.html?base=X&data=1": {
			Title: "Золушка", URL: "https://tce.by/shows.html?base=X&data=1",
			Seats: []string{"A", "B"}, Count: 2,
		},
	}
	cur := Snapshot{
		"https://tce.by/shows.html?base=X&data=1": {
			Title: "Золушка", URL: "https://tce.by/shows.html?base=X&data=1",
			Seats: []string{"A", "B", "C"}, Count: 3,
		},
	}

	events := Diff(prev, cur)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !reflect.DeepEqual(events[0].Added, []string{"C"}) {
		t.Errorf("Added = %v, want [C]", events[0].Added)
	}
}

func TestDiffNewURL(t *testing.T) {
	cur := Snapshot{
		"https://tce.by/shows.html?base=X&data=2": {
			Seats: []string{"row 1 seat 4"}, Count: 1,
		},
	}
	events := Diff(Snapshot{}, cur)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if !reflect.DeepEqual(events[0].Added, []string{"row 1 seat 4"}) {
		t.Errorf("Added = %v", events[0].Added)
	}
}

func TestDiffCountUnchangedOrLower(t *testing.T) {
	prev := Snapshot{
		"u": {Seats: []string{"A", "B"}, Count: 2},
	}
	for _, cur := range []Snapshot{
		{"u": {Seats: []string{"A", "C"}, Count: 2}}, // same count, changed string
		{"u": {Seats: []string{"A"}, Count: 1}},      // seats sold
	} {
		if events := Diff(prev, cur); len(events) != 0 {
			t.Errorf("Diff(%v) = %v, want no events", cur, events)
		}
	}
}

func TestDiffSetSemantics(t *testing.T) {
	prev := Snapshot{"u": {Seats: []string{"A"}, Count: 1}}
	cur := Snapshot{"u": {Seats: []string{"A", "B", "B", "C"}, Count: 4}}
	events := Diff(prev, cur)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	got := append([]string(nil), events[0].Added...)
	sort.Strings(got)
	if !reflect.DeepEqual(got, []string{"B", "C"}) {
		t.Errorf("Added = %v, want [B C]", got)
	}
}

func TestLoadMissingFileIsFirstRun(t *testing.T) {
	snap, ok, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || snap != nil {
		t.Errorf("missing file: got ok=%v snap=%v, want first-run", ok, snap)
	}
}

func TestLoadCorruptFileDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seats.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	snap, ok, err := Load(path)
	if err == nil {
		t.Error("corrupt file should surface a parse error for logging")
	}
	if ok || snap != nil {
		t.Errorf("corrupt file: got ok=%v, want first-run semantics", ok)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seats.json")
	want := Snapshot{
		"https://tce.by/shows.html?base=X&data=1": {
			Title: "Кот в сапогах",
			URL:   "https://tce.by/shows.html?base=X&data=1",
			Seats: []string{"Ряд 3, Место 7, Цена 25 руб."},
			Count: 1,
		},
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := Load(path)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestSaveReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seats.json")
	if err := Save(path, Snapshot{"a": {Count: 1}}); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, Snapshot{"b": {Count: 2}}); err != nil {
		t.Fatal(err)
	}
	got, _, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, stale := got["a"]; stale {
		t.Error("old snapshot content survived a save")
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestCacheAddDedupes(t *testing.T) {
	c := &Cache{}
	c.Add("https://puppet-minsk.by/spektakli/zolushka", []string{"t1", "t2"})
	c.Add("https://puppet-minsk.by/spektakli/teremok", []string{"t2", "t3"})

	if !reflect.DeepEqual(c.Tickets, []string{"t1", "t2", "t3"}) {
		t.Errorf("Tickets = %v", c.Tickets)
	}
	if !reflect.DeepEqual(c.Shows["https://puppet-minsk.by/spektakli/teremok"], []string{"t2", "t3"}) {
		t.Errorf("Shows mapping = %v", c.Shows)
	}
}

func TestCacheLoadMissingAndCorrupt(t *testing.T) {
	c, err := LoadCache(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || !c.Empty() {
		t.Errorf("missing cache: got %v, %v", c, err)
	}

	path := filepath.Join(t.TempDir(), "cache.json")
	os.WriteFile(path, []byte("]["), 0o644)
	c, err = LoadCache(path)
	if err == nil {
		t.Error("corrupt cache should return a loggable error")
	}
	if !c.Empty() {
		t.Errorf("corrupt cache must degrade to empty, got %v", c)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := &Cache{}
	c.Add("show", []string{"https://tce.by/shows.html?base=X&data=9"})
	if err := SaveCache(path, c); err != nil {
		t.Fatal(err)
	}
	got, err := LoadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Tickets, c.Tickets) || !reflect.DeepEqual(got.Shows, c.Shows) {
		t.Errorf("round trip mismatch: %v vs %v", got, c)
	}
}
