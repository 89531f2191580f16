// Package relay runs the two-step voice pipeline: reply text from a
// text-generation provider, then audio from the voice-clone server or the
// fallback speech backend. Nothing is kept between requests.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/tahcohcat/chandu-voice/internal/llm"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/tts"
)

type Service struct {
	textGen  llm.LLM
	clone    tts.Tts
	fallback tts.Tts
	notifier Notifier
	logger   *logger.Log
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	Reply       string
	Audio       []byte
	Synthesizer string
}

// NewService wires the pipeline. clone may be nil when no clone server is
// configured; notifier may be nil.
func NewService(textGen llm.LLM, clone, fallback tts.Tts, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		textGen:  textGen,
		clone:    clone,
		fallback: fallback,
		notifier: notifier,
		logger:   logger.New(),
	}
}

// Process expects a normalised request with non-empty text.
func (s *Service) Process(ctx context.Context, requestID string, req VoiceRequest) (*Result, error) {
	log := s.logger.WithField("request_id", requestID)

	s.emit(requestID, StageTextGeneration, EventStarted, "")
	start := time.Now()
	reply, err := s.textGen.GenerateResponse(ctx, llm.ReplyPrompt(req.Text))
	if err != nil {
		return nil, s.fail(requestID, StageTextGeneration, err)
	}
	log.WithDuration("elapsed", time.Since(start)).Info(fmt.Sprintf("Reply generated (%d chars)", len(reply)))
	s.emit(requestID, StageTextGeneration, EventCompleted, "")

	stage, synth := s.synthesizer(req)

	s.emit(requestID, stage, EventStarted, synth.Name())
	start = time.Now()
	audio, err := synth.GenerateAudio(ctx, reply, req.Language)
	if err != nil {
		return nil, s.fail(requestID, stage, err)
	}
	log.WithDuration("elapsed", time.Since(start)).Info(fmt.Sprintf("%s produced %d bytes", synth.Name(), len(audio)))
	s.emit(requestID, stage, EventCompleted, synth.Name())

	return &Result{Reply: reply, Audio: audio, Synthesizer: synth.Name()}, nil
}

// synthesizer picks the clone server for cloned mode when one is configured.
// A failing clone server is reported as such; the fallback is not tried.
func (s *Service) synthesizer(req VoiceRequest) (Stage, tts.Tts) {
	if req.WantsClone() && s.clone != nil {
		return StageVoiceClone, s.clone
	}
	return StageSpeech, s.fallback
}

func (s *Service) fail(requestID string, stage Stage, err error) error {
	se := &StageError{Stage: stage, Err: err}
	s.logger.WithField("request_id", requestID).WithError(err).Error(fmt.Sprintf("%s failed", stage))
	s.emit(requestID, stage, EventFailed, se.Detail())
	return se
}

func (s *Service) emit(requestID string, stage Stage, status EventStatus, detail string) {
	s.notifier.Publish(Event{
		RequestID: requestID,
		Stage:     stage,
		Status:    status,
		Detail:    detail,
		Time:      time.Now().UTC(),
	})
}
