package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// flakyTransport fails the first n round trips with a transport error.
type flakyTransport struct {
	failures int32
	calls    int32
	base     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.base.RoundTrip(req)
}

func testOptions(rt http.RoundTripper) Options {
	return Options{
		Name:            "test",
		Timeout:         2 * time.Second,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		Randomization:   0.5,
		Transport:       rt,
	}
}

func TestDoRetriesNetworkFaultOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio"))
	}))
	defer srv.Close()

	rt := &flakyTransport{failures: 1, base: http.DefaultTransport}
	c := NewClient(testOptions(rt))

	resp, err := c.PostJSON(context.Background(), srv.URL, nil, map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if string(resp.Body) != "audio" {
		t.Errorf("body = %q, want audio", resp.Body)
	}
	if rt.calls != 2 {
		t.Errorf("round trips = %d, want 2", rt.calls)
	}
}

func TestDoGivesUpAfterSingleRetry(t *testing.T) {
	rt := &flakyTransport{failures: 10, base: http.DefaultTransport}
	c := NewClient(testOptions(rt))

	_, err := c.PostJSON(context.Background(), "http://example.invalid/x", nil, map[string]string{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNetworkError(err) {
		t.Errorf("error %v is not a NetworkError", err)
	}
	if rt.calls != 2 {
		t.Errorf("round trips = %d, want 2", rt.calls)
	}
}

func TestDoDoesNotRetryStatusErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	c := NewClient(testOptions(nil))
	resp, err := c.PostJSON(context.Background(), srv.URL, nil, map[string]string{})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}

	err = CheckStatus("test", resp)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("CheckStatus() = %v, want *StatusError", err)
	}
	if se.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d", se.Status)
	}
	if len(se.Detail()) != DetailLimit {
		t.Errorf("len(Detail()) = %d, want %d", len(se.Detail()), DetailLimit)
	}
}

func TestDoSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"text":"hi"}` {
			t.Errorf("body = %s", body)
		}
		w.Header().Set("Content-Type", "audio/wav")
	}))
	defer srv.Close()

	c := NewClient(testOptions(nil))
	resp, err := c.PostJSON(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"text": "hi"})
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if resp.ContentType != "audio/wav" {
		t.Errorf("ContentType = %q", resp.ContentType)
	}
}

func TestDoTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	opts := testOptions(nil)
	opts.Timeout = 50 * time.Millisecond
	opts.MaxRetries = 0
	c := NewClient(opts)

	_, err := c.PostJSON(context.Background(), srv.URL, nil, map[string]string{})
	if !IsNetworkError(err) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
}

func TestDoBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 64)))
	}))
	defer srv.Close()

	opts := testOptions(nil)
	opts.MaxBodyBytes = 16
	c := NewClient(opts)

	if _, err := c.PostJSON(context.Background(), srv.URL, nil, map[string]string{}); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"short", "abc", 10, "abc"},
		{"exact", "abc", 3, "abc"},
		{"cut", "abcdef", 3, "abc"},
		{"multibyte", "नमस्ते दुनिया", 4, "नमस्"},
		{"zero", "abc", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.limit); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
			}
		})
	}
}

func TestNetworkErrorRedactsKey(t *testing.T) {
	rt := &flakyTransport{failures: 10, base: http.DefaultTransport}
	opts := testOptions(rt)
	opts.MaxRetries = 0
	c := NewClient(opts)

	_, err := c.PostJSON(context.Background(), "http://example.invalid/models/m:generateText?key=supersecret", nil, map[string]string{})
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "supersecret") {
		t.Errorf("error leaks credential: %v", err)
	}
}
