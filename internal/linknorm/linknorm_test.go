package linknorm

import (
	"strings"
	"testing"
)

func TestNormalizeResolvesAndDedupes(t *testing.T) {
	in := []string{
		"/spektakli/zolushka",
		"https://puppet-minsk.by/spektakli/zolushka",
		"https://puppet-minsk.by/spektakli/zolushka#prices",
		"/spektakli/kot-v-sapogah",
	}
	got := Normalize(in)
	want := []string{
		"https://puppet-minsk.by/spektakli/zolushka",
		"https://puppet-minsk.by/spektakli/kot-v-sapogah",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d urls, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("url %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeDropsNoisePath(t *testing.T) {
	for _, raw := range []string{
		"/afisha",
		"/afisha/",
		"https://puppet-minsk.by/afisha",
		"https://puppet-minsk.by/afisha/",
		"afisha#top",
	} {
		if got := Normalize([]string{raw}); len(got) != 0 {
			t.Errorf("Normalize(%q) = %v, want empty", raw, got)
		}
	}
}

func TestNormalizeNeverPanicsOnGarbage(t *testing.T) {
	in := []string{
		"", "   ", "://///", "javascript:void(0)", "mailto:box@example.com",
		"%zz", "http://", strings.Repeat("a", 5000),
	}
	got := Normalize(in)
	for _, u := range got {
		if !strings.HasPrefix(u, "http") {
			t.Errorf("normalized output %q has no http scheme", u)
		}
	}
}

func TestNormalizePreservesFirstSeenOrder(t *testing.T) {
	in := []string{"/b", "/a", "/b", "/c", "/a"}
	got := Normalize(in)
	want := []string{
		"https://puppet-minsk.by/b",
		"https://puppet-minsk.by/a",
		"https://puppet-minsk.by/c",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStripFragment(t *testing.T) {
	tests := []struct{ in, want string }{
		{"https://tce.by/shows.html?base=X&data=1#hall", "https://tce.by/shows.html?base=X&data=1"},
		{"https://tce.by/shows.html", "https://tce.by/shows.html"},
		{"#only", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripFragment(tt.in); got != tt.want {
			t.Errorf("StripFragment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsPartnerURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://tce.by/", true},
		{"https://www.tce.by/about.html", true},
		{"https://tce.by/shows.html?base=X&data=1", true},
		{"https://puppet-minsk.by/afisha", false},
		{"https://example.com/tce.by", false}, // partner name in path, not host
		{"not a url at all \x00", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsPartnerURL(tt.in); got != tt.want {
			t.Errorf("IsPartnerURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestIsSiteURL(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"https://puppet-minsk.by/spektakli/zolushka", true},
		{"https://PUPPET-MINSK.BY/afisha", true},
		{"https://tce.by/shows.html?base=X&data=1", false},
		{"/relative", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSiteURL(tt.in); got != tt.want {
			t.Errorf("IsSiteURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Each qualifying condition is removed independently: host, endpoint path,
// and each required query parameter.
func TestIsTicketURLBoundaries(t *testing.T) {
	qualifying := "https://tce.by/shows.html?base=RkZDMTE2&data=3811"
	if !IsTicketURL(qualifying) {
		t.Fatalf("IsTicketURL(%q) = false, want true", qualifying)
	}

	tests := []struct {
		name string
		in   string
	}{
		{"wrong host", "https://other.by/shows.html?base=RkZDMTE2&data=3811"},
		{"wrong endpoint", "https://tce.by/tickets.html?base=RkZDMTE2&data=3811"},
		{"missing base", "https://tce.by/shows.html?data=3811"},
		{"missing data", "https://tce.by/shows.html?base=RkZDMTE2"},
		{"empty base", "https://tce.by/shows.html?base=&data=3811"},
		{"bare partner root", "https://tce.by/"},
	}
	for _, tt := range tests {
		if IsTicketURL(tt.in) {
			t.Errorf("%s: IsTicketURL(%q) = true, want false", tt.name, tt.in)
		}
	}
}

func TestIsTicketURLCaseInsensitivePath(t *testing.T) {
	if !IsTicketURL("https://TCE.BY/Shows.HTML?base=X&data=1") {
		t.Error("mixed-case host/path should still qualify")
	}
}
