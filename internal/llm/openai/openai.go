// internal/llm/openai/openai.go
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/llm/extract"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

type Client struct {
	apiKey   string
	baseURL  string
	config   *config.OpenAIConfig
	logger   *logger.Log
	upstream *upstream.Client
}

type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ModelsResponse struct {
	Object string `json:"object"`
	Data   []struct {
		ID      string `json:"id"`
		Object  string `json:"object"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}

func NewClient(cfg *config.OpenAIConfig, up *upstream.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Client{
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		config:   cfg,
		logger:   logger.New().WithField("provider", "openai"),
		upstream: up,
	}, nil
}

func (c *Client) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	req := OpenAIRequest{
		Model:       c.config.Model,
		Messages:    []OpenAIMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		MaxTokens:   c.config.MaxTokens,
		Stream:      false,
	}

	c.logger.Debug(fmt.Sprintf("Generating response with OpenAI model %s", c.config.Model))

	resp, err := c.upstream.PostJSON(ctx, c.baseURL+"/chat/completions", c.auth(), req)
	if err != nil {
		c.logger.WithError(err).Error("Failed to make OpenAI request")
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if err := upstream.CheckStatus("openai", resp); err != nil {
		c.logger.Error(err.Error())
		return "", err
	}

	reply := extract.Reply(resp.Body)
	if reply.Fallback {
		c.logger.Warn("Unrecognised OpenAI response shape, speaking stringified response")
	}
	return reply.Text, nil
}

func (c *Client) IsModelAvailable(ctx context.Context) error {
	resp, err := c.upstream.Do(ctx, http.MethodGet, c.baseURL+"/models", c.auth(), nil)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if err := upstream.CheckStatus("openai", resp); err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	var modelsResp ModelsResponse
	if err := json.Unmarshal(resp.Body, &modelsResp); err != nil {
		return fmt.Errorf("failed to unmarshal models response: %w", err)
	}

	// Check if the configured model is available
	var availableModels []string
	for _, model := range modelsResp.Data {
		if model.ID == c.config.Model {
			return nil
		}
		availableModels = append(availableModels, model.ID)
	}

	return fmt.Errorf("model %s not found. Available models: %v", c.config.Model, availableModels)
}
