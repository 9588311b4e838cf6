package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// TestRobotsPolicy tests the robots.txt gate.
func TestRobotsPolicy(t *testing.T) {
	t.Parallel()

	t.Run("applies disallow rules", func(t *testing.T) {
		t.Parallel()

		var fetches atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/robots.txt" {
				fetches.Add(1)
				_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n")) //nolint:errcheck // test handler
			}
		}))
		defer srv.Close()

		p := NewRobotsPolicy(newTestClient(t), "aaofetch-test", testLogger())
		ctx := context.Background()

		if p.Allowed(ctx, srv.URL+"/private/a.pdf") {
			t.Error("expected /private/ to be disallowed")
		}
		if !p.Allowed(ctx, srv.URL+"/public/a.pdf") {
			t.Error("expected /public/ to be allowed")
		}
		if fetches.Load() != 1 {
			t.Errorf("expected robots.txt to be fetched once, got %d", fetches.Load())
		}
	})

	t.Run("agent specific group", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("User-agent: aaofetch-test\nDisallow: /\n\nUser-agent: *\nAllow: /\n")) //nolint:errcheck // test handler
		}))
		defer srv.Close()

		p := NewRobotsPolicy(newTestClient(t), "aaofetch-test", testLogger())
		if p.Allowed(context.Background(), srv.URL+"/a.pdf") {
			t.Error("expected agent group to disallow")
		}
	})

	t.Run("missing robots.txt allows all", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		p := NewRobotsPolicy(newTestClient(t), "aaofetch-test", testLogger())
		if !p.Allowed(context.Background(), srv.URL+"/anything") {
			t.Error("expected missing robots.txt to allow")
		}
	})

	t.Run("server error allows all", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		defer srv.Close()

		p := NewRobotsPolicy(newTestClient(t), "aaofetch-test", testLogger())
		if !p.Allowed(context.Background(), srv.URL+"/anything") {
			t.Error("expected failed robots.txt to allow")
		}
	})

	t.Run("nil policy allows all", func(t *testing.T) {
		t.Parallel()

		var p *RobotsPolicy
		if !p.Allowed(context.Background(), "https://example.org/x") {
			t.Error("expected nil policy to allow")
		}
	})
}
