// internal/llm/gemini/gemini.go
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/llm/extract"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

const (
	MethodGenerateText    = "generateText"
	MethodGenerateContent = "generateContent"

	AuthBearer = "bearer"
	AuthQuery  = "query"
)

// Client talks to the Generative Language REST API (PaLM generateText or
// Gemini generateContent).
type Client struct {
	config   *config.TextGenConfig
	upstream *upstream.Client
	logger   *logger.Log
}

type textPrompt struct {
	Text string `json:"text"`
}

type generateTextRequest struct {
	Prompt textPrompt `json:"prompt"`
}

type contentPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string        `json:"role,omitempty"`
	Parts []contentPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

func NewClient(cfg *config.TextGenConfig, up *upstream.Client) *Client {
	return &Client{
		config:   cfg,
		upstream: up,
		logger:   logger.New().WithField("provider", "gemini"),
	}
}

func (c *Client) method() string {
	if c.config.Method == MethodGenerateContent {
		return MethodGenerateContent
	}
	return MethodGenerateText
}

func (c *Client) endpoint(suffix string) string {
	u := fmt.Sprintf("%s/models/%s%s", c.config.BaseURL, url.PathEscape(c.config.Model), suffix)
	if c.config.Auth == AuthQuery {
		u += "?key=" + url.QueryEscape(c.config.APIKey)
	}
	return u
}

func (c *Client) headers() map[string]string {
	if c.config.Auth == AuthQuery {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.config.APIKey}
}

func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	var body interface{}
	if c.method() == MethodGenerateContent {
		body = generateContentRequest{
			Contents: []content{{Role: "user", Parts: []contentPart{{Text: prompt}}}},
		}
	} else {
		body = generateTextRequest{Prompt: textPrompt{Text: prompt}}
	}

	c.logger.Debug(fmt.Sprintf("Generating response with model %s via %s", c.config.Model, c.method()))

	resp, err := c.upstream.PostJSON(ctx, c.endpoint(":"+c.method()), c.headers(), body)
	if err != nil {
		c.logger.WithError(err).Error("Failed to make generative text request")
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if err := upstream.CheckStatus("gemini", resp); err != nil {
		c.logger.Error(err.Error())
		return "", err
	}

	reply := extract.Reply(resp.Body)
	if reply.Fallback {
		c.logger.Warn("Unrecognised response shape, speaking stringified response")
	} else {
		c.logger.Debug(fmt.Sprintf("Reply extracted with strategy %s", reply.Strategy))
	}

	return reply.Text, nil
}

func (c *Client) IsModelAvailable(ctx context.Context) error {
	resp, err := c.upstream.Do(ctx, http.MethodGet, c.endpoint(""), c.headers(), nil)
	if err != nil {
		return fmt.Errorf("failed to get model: %w", err)
	}
	if err := upstream.CheckStatus("gemini", resp); err != nil {
		return fmt.Errorf("model %s not available: %w", c.config.Model, err)
	}
	return nil
}
