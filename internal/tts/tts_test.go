package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
	"github.com/tahcohcat/chandu-voice/internal/wav"
)

func testUpstream(name string) *upstream.Client {
	return upstream.NewClient(upstream.Options{Name: name, Timeout: 2 * time.Second})
}

func TestCloneClientGenerateAudio(t *testing.T) {
	audio := wav.Silence(10, 24000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("path = %q, want /synthesize", r.URL.Path)
		}
		var req cloneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Text != "Namaste" || req.Language != "hi" {
			t.Errorf("request = %+v", req)
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(audio)
	}))
	defer srv.Close()

	c := NewCloneClient(srv.URL, testUpstream("clone"))
	got, err := c.GenerateAudio(context.Background(), "Namaste", "hi")
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}
	if string(got) != string(audio) {
		t.Error("clone audio was not returned verbatim")
	}
}

func TestCloneClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCloneClient(srv.URL, testUpstream("clone"))
	_, err := c.GenerateAudio(context.Background(), "x", "en")

	var se *upstream.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusServiceUnavailable {
		t.Fatalf("error = %v, want 503 StatusError", err)
	}
}

func TestSpeechAPIRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Authorization = %q", got)
		}
		var req speechRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Input.Text != "hello" {
			t.Errorf("text = %q", req.Input.Text)
		}
		if req.Audio.Encoding != "LINEAR16" || req.Audio.SampleRateHertz != 24000 {
			t.Errorf("audio = %+v", req.Audio)
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte("RAWBYTES"))
	}))
	defer srv.Close()

	s := NewSpeechAPI(config.SpeechConfig{URL: srv.URL, APIKey: "key"}, testUpstream("speech"))
	got, err := s.GenerateAudio(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}
	if string(got) != "RAWBYTES" {
		t.Errorf("audio = %q", got)
	}
}

func TestSpeechAPIUnwrapsAudioContent(t *testing.T) {
	audio := wav.Silence(4, 24000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer srv.Close()

	s := NewSpeechAPI(config.SpeechConfig{URL: srv.URL, SampleRate: 24000}, testUpstream("speech"))
	got, err := s.GenerateAudio(context.Background(), "hello", "en")
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}
	if !wav.IsWAV(got) || len(got) != len(audio) {
		t.Errorf("audioContent was not decoded: %d bytes", len(got))
	}
}

func TestSpeechAPIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSpeechAPI(config.SpeechConfig{URL: srv.URL}, testUpstream("speech"))
	_, err := s.GenerateAudio(context.Background(), "hello", "en")

	var se *upstream.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want 429 StatusError", err)
	}
}

func TestDummyTts(t *testing.T) {
	d := NewDummyTts(0)
	got, err := d.GenerateAudio(context.Background(), "anything", "en")
	if err != nil {
		t.Fatalf("GenerateAudio() error = %v", err)
	}
	if wav.SampleRate(got) != DefaultSampleRate {
		t.Errorf("sample rate = %d", wav.SampleRate(got))
	}
}

func TestFactories(t *testing.T) {
	cfg := &config.Config{Speech: config.SpeechConfig{Backend: config.SpeechBackendDummy}}
	if NewCloneTTS(cfg) != nil {
		t.Error("NewCloneTTS() should be nil without clone URL")
	}

	cfg.Clone.URL = "http://rvc.local"
	if c := NewCloneTTS(cfg); c == nil || c.Name() != "Voice clone server" {
		t.Errorf("NewCloneTTS() = %v", c)
	}

	fb, err := NewFallbackTTS(cfg)
	if err != nil || fb.Name() != "dummy" {
		t.Errorf("NewFallbackTTS(dummy) = %v, %v", fb, err)
	}

	cfg.Speech.Backend = config.SpeechBackendREST
	if fb, _ := NewFallbackTTS(cfg); fb.Name() != "Speech synthesis API" {
		t.Errorf("NewFallbackTTS(rest) = %v", fb.Name())
	}

	cfg.Speech.Backend = "carrier-pigeon"
	if _, err := NewFallbackTTS(cfg); err == nil {
		t.Error("NewFallbackTTS() accepted unknown backend")
	}
}
