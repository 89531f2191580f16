package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

const (
	DefaultSampleRate = 24000
	EncodingLinear16  = "LINEAR16"
)

// SpeechAPI is the generic REST speech:generate fallback.
type SpeechAPI struct {
	url        string
	apiKey     string
	sampleRate int
	upstream   *upstream.Client
	logger     *logger.Log
}

type speechInput struct {
	Text string `json:"text"`
}

type speechAudio struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
}

type speechRequest struct {
	Input speechInput `json:"input"`
	Audio speechAudio `json:"audio"`
}

func NewSpeechAPI(cfg config.SpeechConfig, up *upstream.Client) *SpeechAPI {
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return &SpeechAPI{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		sampleRate: rate,
		upstream:   up,
		logger:     logger.New().WithField("tts", "speech-api"),
	}
}

func (s *SpeechAPI) GenerateAudio(ctx context.Context, text, _ string) ([]byte, error) {
	req := speechRequest{
		Input: speechInput{Text: text},
		Audio: speechAudio{Encoding: EncodingLinear16, SampleRateHertz: s.sampleRate},
	}

	var headers map[string]string
	if s.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + s.apiKey}
	}

	resp, err := s.upstream.PostJSON(ctx, s.url, headers, req)
	if err != nil {
		return nil, fmt.Errorf("speech request failed: %w", err)
	}
	if err := upstream.CheckStatus("speech", resp); err != nil {
		return nil, err
	}

	return unwrapAudio(resp)
}

// unwrapAudio returns the body verbatim unless it is a JSON envelope carrying
// base64 audioContent.
func unwrapAudio(resp *upstream.Response) ([]byte, error) {
	if !strings.HasPrefix(resp.ContentType, "application/json") {
		return resp.Body, nil
	}
	content := gjson.GetBytes(resp.Body, "audioContent")
	if content.Type != gjson.String {
		return resp.Body, nil
	}
	audio, err := base64.StdEncoding.DecodeString(content.Str)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audioContent: %w", err)
	}
	return audio, nil
}

func (s *SpeechAPI) Name() string {
	return "Speech synthesis API"
}
