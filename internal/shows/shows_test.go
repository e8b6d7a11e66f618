package shows

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadRemoteMixedFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			"/spektakli/zolushka#top",
			{"title":"Теремок","link":"https://puppet-minsk.by/spektakli/teremok"},
			{"title":"no link"},
			"/afisha"
		]`)
	}))
	defer srv.Close()

	s := New("x/y", "state", "absent.json", true,
		WithRemoteURL(srv.URL), WithLogger(discard()))
	got := s.Load(context.Background())
	want := []string{
		"https://puppet-minsk.by/spektakli/zolushka",
		"https://puppet-minsk.by/spektakli/teremok",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %v, want %v", got, want)
	}
}

func TestLoadRemoteFailureFallsBackToLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "shows.json")
	os.WriteFile(local, []byte(`["/spektakli/kolobok"]`), 0o644)

	s := New("x/y", "state", local, true, WithRemoteURL(srv.URL), WithLogger(discard()))
	got := s.Load(context.Background())
	if len(got) != 1 || got[0] != "https://puppet-minsk.by/spektakli/kolobok" {
		t.Errorf("Load = %v", got)
	}
}

func TestLoadRemoteDisabledUsesLocal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote must not be contacted when disabled")
	}))
	defer srv.Close()

	local := filepath.Join(t.TempDir(), "shows.json")
	os.WriteFile(local, []byte(`["/spektakli/kolobok"]`), 0o644)

	s := New("x/y", "state", local, false, WithRemoteURL(srv.URL), WithLogger(discard()))
	if got := s.Load(context.Background()); len(got) != 1 {
		t.Errorf("Load = %v", got)
	}
}

func TestLoadEverythingUnavailableIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer srv.Close()

	s := New("x/y", "state", filepath.Join(t.TempDir(), "absent.json"), true,
		WithRemoteURL(srv.URL), WithLogger(discard()))
	if got := s.Load(context.Background()); len(got) != 0 {
		t.Errorf("Load = %v, want empty", got)
	}
}
