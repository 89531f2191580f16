package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

func TestGenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","response":"Bonjour","done":true}` + "\n"))
	}))
	defer srv.Close()

	c, err := NewClient(&config.OllamaConfig{Host: srv.URL, Model: "llama3.2", Timeout: 5})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	got, err := c.GenerateResponse(context.Background(), "salut")
	if err != nil {
		t.Fatalf("GenerateResponse() error = %v", err)
	}
	if got != "Bonjour" {
		t.Errorf("reply = %q, want Bonjour", got)
	}
}

func TestGenerateResponseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer srv.Close()

	c, _ := NewClient(&config.OllamaConfig{Host: srv.URL, Model: "nope", Timeout: 5})
	_, err := c.GenerateResponse(context.Background(), "x")

	var se *upstream.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *upstream.StatusError", err)
	}
	if se.Status != http.StatusNotFound {
		t.Errorf("Status = %d", se.Status)
	}
}
