package tts

import (
	"context"
	"fmt"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

// Tts turns reply text into audio bytes.
type Tts interface {
	GenerateAudio(ctx context.Context, text, language string) ([]byte, error)
	Name() string
}

// NewCloneTTS returns the voice-clone client, or nil when no clone server is configured.
func NewCloneTTS(cfg *config.Config) Tts {
	if !cfg.CloneConfigured() {
		return nil
	}
	return NewCloneClient(cfg.Clone.URL, upstreamClient("clone", cfg, cfg.Clone.Timeout))
}

// NewFallbackTTS creates the generic speech backend selected by speech.backend.
func NewFallbackTTS(cfg *config.Config) (Tts, error) {
	switch cfg.Speech.Backend {
	case config.SpeechBackendREST, "":
		return NewSpeechAPI(cfg.Speech, upstreamClient("speech", cfg, cfg.Speech.Timeout)), nil
	case config.SpeechBackendGoogle:
		return NewWebGoogleTTSClient(cfg.Speech)
	case config.SpeechBackendDummy:
		return NewDummyTts(cfg.Speech.SampleRate), nil
	default:
		return nil, fmt.Errorf("unsupported speech backend: %s", cfg.Speech.Backend)
	}
}

func upstreamClient(name string, cfg *config.Config, timeout int) *upstream.Client {
	return upstream.NewClient(upstream.Options{
		Name:            name,
		Timeout:         config.Seconds(timeout),
		MaxRetries:      cfg.Retry.MaxRetries,
		InitialInterval: cfg.Retry.InitialInterval,
		Randomization:   cfg.Retry.Randomization,
		MaxBodyBytes:    cfg.Upstream.MaxBodyBytes,
		LogBodies:       cfg.Upstream.LogBodies,
	})
}
