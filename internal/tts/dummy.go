package tts

import (
	"context"
	"fmt"

	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/wav"
)

// DummyTts returns half a second of silence. Useful for running the relay
// locally without speech credentials.
type DummyTts struct {
	sampleRate int
}

func NewDummyTts(sampleRate int) *DummyTts {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &DummyTts{sampleRate: sampleRate}
}

func (d *DummyTts) GenerateAudio(_ context.Context, text, language string) ([]byte, error) {
	logger.New().Debug(fmt.Sprintf("no tts configured, returning silence for %d chars (%s)", len(text), language))
	return wav.Silence(d.sampleRate/2, d.sampleRate), nil
}

func (d *DummyTts) Name() string {
	return "dummy"
}
