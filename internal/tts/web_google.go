package tts

import (
	"context"
	"fmt"
	"os"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	tts "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/language"
	"github.com/tahcohcat/chandu-voice/internal/logger"
)

// WebGoogleTTS uses the Cloud Text-to-Speech SDK instead of the REST fallback.
type WebGoogleTTS struct {
	client     *texttospeech.Client
	sampleRate int32
	timeout    time.Duration
	logger     *logger.Log
}

func NewWebGoogleTTSClient(cfg config.SpeechConfig) (*WebGoogleTTS, error) {
	ctx := context.Background()

	var opts []option.ClientOption
	if os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" && cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google TTS client: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	return &WebGoogleTTS{
		client:     client,
		sampleRate: int32(rate),
		timeout:    config.Seconds(cfg.Timeout),
		logger:     logger.New().WithField("tts", "google"),
	}, nil
}

// GenerateAudio synthesises LINEAR16 audio, which Google returns wrapped in a WAV header.
func (g *WebGoogleTTS) GenerateAudio(ctx context.Context, text, lang string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	languageCode := language.BCP47(lang)

	req := &tts.SynthesizeSpeechRequest{
		Input: &tts.SynthesisInput{
			InputSource: &tts.SynthesisInput_Text{Text: text},
		},
		Voice: &tts.VoiceSelectionParams{
			LanguageCode: languageCode,
		},
		AudioConfig: &tts.AudioConfig{
			AudioEncoding:   tts.AudioEncoding_LINEAR16,
			SampleRateHertz: g.sampleRate,
		},
	}

	g.logger.Debug(fmt.Sprintf("Generating Google TTS audio, language: %s", languageCode))

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if len(resp.AudioContent) == 0 {
		return nil, fmt.Errorf("empty audio content received from Google TTS")
	}

	g.logger.Debug(fmt.Sprintf("Generated %d bytes of LINEAR16 audio", len(resp.AudioContent)))
	return resp.AudioContent, nil
}

func (g *WebGoogleTTS) Name() string {
	return "Google Cloud Text-to-Speech"
}

func (g *WebGoogleTTS) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
