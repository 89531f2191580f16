package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

func newTestClient(srv *httptest.Server, method, auth string) *Client {
	cfg := &config.TextGenConfig{
		APIKey:  "test-key",
		Model:   "text-bison-001",
		BaseURL: srv.URL,
		Method:  method,
		Auth:    auth,
	}
	up := upstream.NewClient(upstream.Options{Name: "gemini", Timeout: 2 * time.Second})
	return NewClient(cfg, up)
}

func TestGenerateTextRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-bison-001:generateText" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var body generateTextRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if !strings.Contains(body.Prompt.Text, "User: Hello") {
			t.Errorf("prompt = %q", body.Prompt.Text)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"output":"Hi!"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, MethodGenerateText, AuthBearer)
	got, err := c.GenerateResponse(context.Background(), "You are a helpful assistant. User: Hello")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if got != "Hi!" {
		t.Errorf("reply = %q, want Hi!", got)
	}
}

func TestGenerateContentWithQueryKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/text-bison-001:generateContent" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization should be empty with query auth, got %q", got)
		}

		var body generateContentRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Contents) != 1 || body.Contents[0].Parts[0].Text != "hola" {
			t.Errorf("contents = %+v", body.Contents)
		}

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"¡Hola!"}]}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, MethodGenerateContent, AuthQuery)
	got, err := c.GenerateResponse(context.Background(), "hola")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if got != "¡Hola!" {
		t.Errorf("reply = %q", got)
	}
}

func TestGenerateResponseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(strings.Repeat("denied ", 200)))
	}))
	defer srv.Close()

	c := newTestClient(srv, MethodGenerateText, AuthBearer)
	_, err := c.GenerateResponse(context.Background(), "x")

	var se *upstream.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *upstream.StatusError", err)
	}
	if se.Status != http.StatusForbidden {
		t.Errorf("Status = %d", se.Status)
	}
	if len(se.Detail()) > upstream.DetailLimit {
		t.Errorf("Detail() length %d exceeds limit", len(se.Detail()))
	}
}

func TestGenerateResponseUnknownShapeFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"filters":[{"reason":"OTHER"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, MethodGenerateText, AuthBearer)
	got, err := c.GenerateResponse(context.Background(), "x")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if got != `{"filters":[{"reason":"OTHER"}]}` {
		t.Errorf("reply = %q", got)
	}
}

func TestIsModelAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/models/text-bison-001" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"name":"models/text-bison-001"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv, MethodGenerateText, AuthBearer)
	if err := c.IsModelAvailable(context.Background()); err != nil {
		t.Errorf("IsModelAvailable() error = %v", err)
	}

	c.config.Model = "missing"
	if err := c.IsModelAvailable(context.Background()); err == nil {
		t.Error("IsModelAvailable() = nil for unknown model")
	}
}
