// internal/api/handlers.go
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/relay"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

// maxRequestBytes caps the inbound JSON body.
const maxRequestBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	Details string `json:"details,omitempty"`
}

type VoiceHandler struct {
	service      *relay.Service
	credentialed bool
	logger       *logger.Log
}

// NewVoiceHandler builds the relay handler. service may be nil when no
// text-generation provider could be created; requests then fail with 500.
func NewVoiceHandler(cfg *config.Config, service *relay.Service) *VoiceHandler {
	return &VoiceHandler{
		service:      service,
		credentialed: cfg.HasTextGenCredential(),
		logger:       logger.New().WithField("handler", "voice"),
	}
}

// POST /api/voice - Generate a spoken reply, returned as base64 WAV
func (vh *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Only POST allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON", Details: truncate(err.Error())})
		return
	}

	var req relay.VoiceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON", Details: truncate(err.Error())})
		return
	}

	req.Normalize()
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing text"})
		return
	}

	if !vh.credentialed || vh.service == nil {
		vh.logger.Error("Text generation credential is not configured")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "text generation credential not configured"})
		return
	}

	requestID := RequestID(r.Context())
	result, err := vh.service.Process(r.Context(), requestID, req)
	if err != nil {
		vh.writeFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Transfer-Encoding", "base64")
	w.Header().Set("X-Audio-Encoding", "base64")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if _, err := io.WriteString(w, base64.StdEncoding.EncodeToString(result.Audio)); err != nil {
		vh.logger.WithField("request_id", requestID).WithError(err).Warn("Failed to write audio response")
	}
}

// writeFailure maps pipeline errors onto 502 for upstream faults and 500 otherwise.
func (vh *VoiceHandler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var se *relay.StageError
	if !errors.As(err, &se) {
		captureError(r, err, "voice: internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal error", Details: truncate(err.Error())})
		return
	}

	resp := errorResponse{Error: failureMessage(se), Details: se.Detail()}
	if status, ok := se.UpstreamStatus(); ok {
		resp.Status = status
	}
	writeJSON(w, http.StatusBadGateway, resp)
}

func failureMessage(se *relay.StageError) string {
	_, hasStatus := se.UpstreamStatus()

	switch se.Stage {
	case relay.StageVoiceClone:
		if hasStatus {
			return "Voice clone server failed"
		}
		return "Voice clone connection error"
	case relay.StageSpeech:
		if hasStatus {
			return "Speech synthesis failed"
		}
		return "Speech synthesis request error"
	default:
		return "Generative text failed"
	}
}

// GET /healthz
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

// NewRouter registers the relay routes. tokenHash, when set, is the bcrypt
// hash of the bearer token callers must present.
func NewRouter(vh *VoiceHandler, tokenHash string) *mux.Router {
	r := mux.NewRouter()
	r.Use(withRequestID, logRequests)

	var voice http.Handler = http.HandlerFunc(vh.Speak)
	if tokenHash != "" {
		voice = requireToken(tokenHash, voice)
	}

	// Method checks happen in Speak so every verb gets the JSON 405.
	r.Handle("/api/voice", voice)
	r.Handle("/.netlify/functions/voice", voice)
	r.HandleFunc("/healthz", Health).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func truncate(s string) string {
	return upstream.Truncate(s, upstream.DetailLimit)
}
