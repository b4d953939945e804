package refs

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestLocator(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		id       string
		index    int
		download string
		preview  string
	}{
		{"relative", "", "p1", 0, "/api/download/p1", "/api/preview/p1/0"},
		{"absolute base", "http://localhost:8000/", "p1", 2, "http://localhost:8000/api/download/p1", "http://localhost:8000/api/preview/p1/2"},
		{"escaped id", "", "a b/c", 1, "/api/download/a%20b%2Fc", "/api/preview/a%20b%2Fc/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLocator(tt.base)
			if got := l.Download(tt.id); got != tt.download {
				t.Fatalf("Download = %q, want %q", got, tt.download)
			}
			if got := l.Preview(tt.id, tt.index); got != tt.preview {
				t.Fatalf("Preview = %q, want %q", got, tt.preview)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	l := NewLocator("http://api.internal:8080")
	tests := map[string]string{
		"/api/download/p1":          "http://api.internal:8080/api/download/p1",
		"https://cdn.example.com/x": "https://cdn.example.com/x",
		"":                          "",
		"/api/preview/p1/3?v=2":     "http://api.internal:8080/api/preview/p1/3?v=2",
	}
	for in, want := range tests {
		if got := l.Resolve(in); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}
	if got := NewLocator("").Resolve("/api/download/p1"); got != "/api/download/p1" {
		t.Fatalf("relative locator must not rewrite refs, got %q", got)
	}
}

func TestLocatorIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("same arguments give the same refs", prop.ForAll(
		func(base, id string, index int) bool {
			a, b := NewLocator(base), NewLocator(base)
			return a.Download(id) == b.Download(id) &&
				a.Download(id) == a.Download(id) &&
				a.Preview(id, index) == b.Preview(id, index)
		},
		gen.OneConstOf("", "http://localhost:8000", "https://slides.example.com/"),
		gen.AnyString(),
		gen.IntRange(0, 30),
	))

	properties.Property("previews list matches single refs", prop.ForAll(
		func(id string, n int) bool {
			l := NewLocator("")
			list := l.Previews(id, n)
			if len(list) != n {
				return false
			}
			for i, ref := range list {
				if ref != l.Preview(id, i) {
					return false
				}
			}
			return true
		},
		gen.Identifier(),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestDownloadFilename(t *testing.T) {
	if got := DownloadFilename("0123456789abcdef"); got != "presentation-01234567.pptx" {
		t.Errorf("DownloadFilename() = %q", got)
	}
	if got := DownloadFilename("abc"); got != "presentation-abc.pptx" {
		t.Errorf("DownloadFilename(short) = %q", got)
	}
}
