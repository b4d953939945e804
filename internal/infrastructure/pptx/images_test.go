package pptx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestImageLoaderFetchesHTTP(t *testing.T) {
	png := tinyPNG(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			_, _ = w.Write(png)
		case "/page.html":
			_, _ = w.Write([]byte("<html><body>nope</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := NewImageLoader(time.Second, "", true)
	data, mime, err := l.Load(context.Background(), srv.URL+"/ok.png")
	if err != nil || mime != "image/png" || len(data) != len(png) {
		t.Fatalf("Load() = %d bytes, %q, %v", len(data), mime, err)
	}
	if _, _, err := l.Load(context.Background(), srv.URL+"/page.html"); err == nil {
		t.Error("expected error for non-image content")
	}
	if _, _, err := l.Load(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestImageLoaderLocalPaths(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "logos"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "logos", "a.png"), tinyPNG(t), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := NewImageLoader(time.Second, "", false).Load(context.Background(), "logos/a.png"); !errors.Is(err, ErrImageSourceDenied) {
		t.Errorf("without assets root error = %v", err)
	}

	l := NewImageLoader(time.Second, root, false)
	if _, mime, err := l.Load(context.Background(), "logos/a.png"); err != nil || mime != "image/png" {
		t.Errorf("Load() = %q, %v", mime, err)
	}
	// ../ 被限制在根目录内
	if _, _, err := l.Load(context.Background(), "../../etc/passwd"); err == nil {
		t.Error("expected traversal outside root to fail")
	}
}

func TestImageLoaderRefusesPrivateHosts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write(tinyPNG(t))
	}))
	defer srv.Close()

	l := NewImageLoader(time.Second, "", false)
	if _, _, err := l.Load(context.Background(), srv.URL+"/ok.png"); !errors.Is(err, ErrImageSourceDenied) {
		t.Errorf("loopback fetch error = %v, want ErrImageSourceDenied", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server was reached %d times", n)
	}
}

func TestRefusePrivate(t *testing.T) {
	tests := []struct {
		address string
		denied  bool
	}{
		{"127.0.0.1:80", true},
		{"10.1.2.3:443", true},
		{"172.16.0.9:443", true},
		{"192.168.1.1:80", true},
		{"169.254.169.254:80", true},
		{"[::1]:443", true},
		{"[fe80::1]:443", true},
		{"[::ffff:10.0.0.1]:80", true},
		{"0.0.0.0:80", true},
		{"93.184.216.34:443", false},
		{"[2606:2800:220:1::1]:443", false},
	}
	for _, tt := range tests {
		err := refusePrivate("tcp", tt.address, nil)
		if got := errors.Is(err, ErrImageSourceDenied); got != tt.denied {
			t.Errorf("refusePrivate(%s) = %v, want denied=%v", tt.address, err, tt.denied)
		}
	}
}
