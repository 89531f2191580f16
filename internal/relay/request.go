package relay

import (
	"strings"

	"github.com/tahcohcat/chandu-voice/internal/language"
)

const ModeCloned = "cloned"

// VoiceRequest is the body of POST /api/voice.
type VoiceRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// Normalize trims the text and applies the language and mode defaults.
func (r *VoiceRequest) Normalize() {
	r.Text = strings.TrimSpace(r.Text)
	r.Language = language.Normalize(r.Language)
	r.Mode = strings.TrimSpace(r.Mode)
	if r.Mode == "" {
		r.Mode = ModeCloned
	}
}

func (r *VoiceRequest) WantsClone() bool {
	return r.Mode == ModeCloned
}
