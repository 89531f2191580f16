package tts

import (
	"context"
	"fmt"

	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

// CloneClient posts reply text to a voice-clone server's /synthesize route.
// Whatever bytes the server answers with are the audio; they are not inspected.
type CloneClient struct {
	baseURL  string
	upstream *upstream.Client
	logger   *logger.Log
}

type cloneRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func NewCloneClient(baseURL string, up *upstream.Client) *CloneClient {
	return &CloneClient{
		baseURL:  baseURL,
		upstream: up,
		logger:   logger.New().WithField("tts", "clone"),
	}
}

func (c *CloneClient) GenerateAudio(ctx context.Context, text, language string) ([]byte, error) {
	resp, err := c.upstream.PostJSON(ctx, c.baseURL+"/synthesize", nil, cloneRequest{Text: text, Language: language})
	if err != nil {
		return nil, fmt.Errorf("voice clone request failed: %w", err)
	}
	if err := upstream.CheckStatus("clone", resp); err != nil {
		return nil, err
	}

	c.logger.Debug(fmt.Sprintf("Received %d bytes of cloned audio", len(resp.Body)))
	return resp.Body, nil
}

func (c *CloneClient) Name() string {
	return "Voice clone server"
}
