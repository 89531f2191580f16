package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/logger"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

type Client struct {
	client *api.Client
	config *config.OllamaConfig
	logger *logger.Log
}

func NewClient(cfg *config.OllamaConfig) (*Client, error) {
	base, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: invalid host %q: %w", cfg.Host, err)
	}

	return &Client{
		client: api.NewClient(base, http.DefaultClient),
		config: cfg,
		logger: logger.New().WithField("provider", "ollama"),
	}, nil
}

func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {

	shouldStream := false

	req := &api.GenerateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: &shouldStream,
		Options: map[string]interface{}{
			"temperature": 0.7,
			"top_p":       0.9,
		},
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Seconds(c.config.Timeout))
		defer cancel()
	}

	c.logger.Debug(fmt.Sprintf("Generating response with model %s", c.config.Model))

	var response string
	f := func(g api.GenerateResponse) error {
		response += g.Response
		return nil
	}

	err := c.client.Generate(ctx, req, f)
	if err != nil {
		c.logger.WithError(err).Error("Failed to generate response")
		var se api.StatusError
		if errors.As(err, &se) {
			return "", &upstream.StatusError{Service: "ollama", Status: se.StatusCode, Body: []byte(se.ErrorMessage)}
		}
		return "", fmt.Errorf("ollama generation failed: %w", &upstream.NetworkError{Err: err})
	}

	return response, nil
}

func (c *Client) IsModelAvailable(ctx context.Context) error {
	models, err := c.client.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	for _, model := range models.Models {
		if model.Name == c.config.Model {
			return nil
		}
	}

	return fmt.Errorf("model %s not found. Available models: %v", c.config.Model, getModelNames(models.Models))
}

func getModelNames(models []api.ListModelResponse) []string {
	names := make([]string, len(models))
	for i, model := range models {
		names[i] = model.Name
	}
	return names
}
