// Package client is the caller side of the relay: it posts text, decodes the
// base64 WAV reply and drives playback through a Player.
package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/relay"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

type State int

const (
	Idle State = iota
	Preparing
	Ready
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrEmptyText = errors.New("please enter some text")
	ErrBusy      = errors.New("a request is already in flight")
	ErrNoAudio   = errors.New("no audio prepared")
)

// ServerError is a non-2xx answer from the relay.
type ServerError struct {
	Status  int
	Message string
	Details string
}

func (e *ServerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("relay returned %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Player plays one prepared clip at a time. Load replaces and releases the
// previous clip. Play must call onEnd when playback finishes on its own.
type Player interface {
	Load(audio []byte) error
	Play(onEnd func()) error
	Pause() error
}

type Options struct {
	Endpoint string
	Token    string
	Mode     string
	Timeout  time.Duration
	Player   Player
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

type Controller struct {
	endpoint string
	token    string
	mode     string
	player   Player
	upstream *upstream.Client
	logger   *logger.Log

	mu       sync.Mutex
	state    State
	hasAudio bool
}

func NewController(opts Options) *Controller {
	if opts.Mode == "" {
		opts.Mode = relay.ModeCloned
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	return &Controller{
		endpoint: opts.Endpoint,
		token:    opts.Token,
		mode:     opts.Mode,
		player:   opts.Player,
		upstream: upstream.NewClient(upstream.Options{
			Name:      "relay",
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		}),
		logger: logger.New().WithField("component", "client"),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send prepares audio for text. Empty text is rejected without a network
// call. On failure the player keeps whatever clip it already had, and the
// controller returns to Ready if there is one, Idle otherwise.
func (c *Controller) Send(ctx context.Context, text, language string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	if err := c.begin(); err != nil {
		return err
	}

	audio, err := c.fetch(ctx, text, language)
	if err == nil {
		err = c.player.Load(audio)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = Idle
		if c.hasAudio {
			c.state = Ready
		}
		c.logger.WithError(err).Error("Voice request failed")
		return err
	}
	c.state = Ready
	c.hasAudio = true
	return nil
}

// Speak is Send followed by Play. A playback failure is only logged; the
// prepared clip stays available.
func (c *Controller) Speak(ctx context.Context, text, language string) error {
	if err := c.Send(ctx, text, language); err != nil {
		return err
	}
	if err := c.Play(); err != nil {
		c.logger.WithError(err).Warn("Autoplay failed, use play to start manually")
	}
	return nil
}

func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state == Playing:
		return nil
	case c.state != Ready || !c.hasAudio:
		return ErrNoAudio
	}

	if err := c.player.Play(c.ended); err != nil {
		return err
	}
	c.state = Playing
	return nil
}

// Stop pauses playback. The clip is kept for another Play.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Playing {
		return nil
	}
	c.state = Ready
	return c.player.Pause()
}

func (c *Controller) ended() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Playing {
		c.state = Ready
	}
}

// begin moves to Preparing, pausing any clip that is still playing.
func (c *Controller) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Preparing:
		return ErrBusy
	case Playing:
		if err := c.player.Pause(); err != nil {
			c.logger.WithError(err).Warn("Failed to pause playback")
		}
	}
	c.state = Preparing
	return nil
}

func (c *Controller) fetch(ctx context.Context, text, language string) ([]byte, error) {
	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	req := relay.VoiceRequest{Text: text, Language: language, Mode: c.mode}
	resp, err := c.upstream.PostJSON(ctx, c.endpoint, headers, req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, parseServerError(resp)
	}

	audio, err := DecodeAudio(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug(fmt.Sprintf("Received %d bytes of audio", len(audio)))
	return audio, nil
}

func parseServerError(resp *upstream.Response) *ServerError {
	se := &ServerError{Status: resp.Status}

	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Error != "" {
		se.Message = body.Error
		se.Details = body.Details
		return se
	}

	se.Message = upstream.Truncate(strings.TrimSpace(string(resp.Body)), upstream.DetailLimit)
	if se.Message == "" {
		se.Message = http.StatusText(resp.Status)
	}
	return se
}

// DecodeAudio decodes the relay's base64 body.
func DecodeAudio(body []byte) ([]byte, error) {
	audio, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("relay returned empty audio")
	}
	return audio, nil
}
