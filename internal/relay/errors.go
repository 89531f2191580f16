package relay

import (
	"errors"
	"fmt"

	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

type Stage string

const (
	StageTextGeneration Stage = "text_generation"
	StageVoiceClone     Stage = "voice_clone"
	StageSpeech         Stage = "speech_synthesis"
)

// StageError records which upstream call in the pipeline failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// UpstreamStatus returns the HTTP status the upstream answered with, if any.
func (e *StageError) UpstreamStatus() (int, bool) {
	var se *upstream.StatusError
	if errors.As(e.Err, &se) {
		return se.Status, true
	}
	return 0, false
}

// Detail is the bounded diagnostic text safe to return to clients.
func (e *StageError) Detail() string {
	var se *upstream.StatusError
	if errors.As(e.Err, &se) {
		return se.Detail()
	}
	return upstream.Truncate(e.Err.Error(), upstream.DetailLimit)
}
