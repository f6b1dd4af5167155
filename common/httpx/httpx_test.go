package httpx

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/civicsense/civicsense/config"
)

func TestMatchHost(t *testing.T) {
	tests := []struct {
		pattern string
		host    string
		want    bool
	}{
		{"*", "anything.example.com", true},
		{"api.example.com", "api.example.com", true},
		{"api.example.com", "API.EXAMPLE.COM", true},
		{"api.example.com", "other.example.com", false},
		{"*.example.com", "api.example.com", true},
		{"*.example.com", "deep.api.example.com", true},
		{"*.example.com", "example.com", true},
		{"*.example.com", "example.org", false},
	}
	for _, tt := range tests {
		if got := matchHost(tt.pattern, tt.host); got != tt.want {
			t.Errorf("matchHost(%q, %q) = %v, want %v", tt.pattern, tt.host, got, tt.want)
		}
	}
}

func TestDo_AllowlistBlocks(t *testing.T) {
	c := NewFromConfig(&config.HTTPClientConfig{HostAllowlist: []string{"allowed.example.com"}})
	req, _ := http.NewRequest(http.MethodGet, "https://blocked.example.com/x", nil)
	if _, err := c.Do(req); !errors.Is(err, ErrHostNotAllowed) {
		t.Fatalf("expected ErrHostNotAllowed, got %v", err)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		body := make([]byte, 4)
		_, _ = r.Body.Read(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewFromConfig(&config.HTTPClientConfig{Retry: 2, BackoffMinMs: 1, BackoffMaxMs: 2})
	req, _ := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader([]byte("data")))
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestDo_ClientErrorsPassThrough(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewFromConfig(&config.HTTPClientConfig{Retry: 3, BackoffMinMs: 1, BackoffMaxMs: 2})
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", got)
	}
}

func TestDo_CircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewFromConfig(&config.HTTPClientConfig{
		Retry:                  0,
		BackoffMinMs:           1,
		BackoffMaxMs:           2,
		MaxConsecutiveFailures: 2,
		CircuitOpenSeconds:     30,
	})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		if _, err := c.Do(req); err == nil {
			t.Fatal("expected failure")
		}
	}
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	if _, err := c.Do(req); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestAllowed_EmptyAllowlistPermitsAll(t *testing.T) {
	c := NewFromConfig(nil)
	u, _ := url.Parse("https://anything.example.com/path")
	if !c.allowed(u.String()) {
		t.Error("empty allowlist should permit any host")
	}
	if !strings.HasPrefix(u.Hostname(), "anything") {
		t.Fatal("sanity check")
	}
}
