// internal/llm/factory.go
package llm

import (
	"fmt"

	"github.com/tahcohcat/chandu-voice/config"
	"github.com/tahcohcat/chandu-voice/internal/llm/gemini"
	"github.com/tahcohcat/chandu-voice/internal/llm/ollama"
	"github.com/tahcohcat/chandu-voice/internal/llm/openai"
	"github.com/tahcohcat/chandu-voice/internal/upstream"
)

type Provider string

const (
	ProviderGemini Provider = config.ProviderGemini
	ProviderOllama Provider = config.ProviderOllama
	ProviderOpenAI Provider = config.ProviderOpenAI
)

// NewLLMClient creates a new LLM client based on the configuration
func NewLLMClient(cfg *config.Config) (LLM, error) {
	switch Provider(cfg.TextGen.Provider) {
	case ProviderGemini, "":
		return gemini.NewClient(&cfg.TextGen, upstreamClient("gemini", cfg, cfg.TextGen.Timeout)), nil
	case ProviderOllama:
		return ollama.NewClient(&cfg.Ollama)
	case ProviderOpenAI:
		return openai.NewClient(&cfg.OpenAI, upstreamClient("openai", cfg, cfg.OpenAI.Timeout))
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.TextGen.Provider)
	}
}

func upstreamClient(name string, cfg *config.Config, timeout int) *upstream.Client {
	return upstream.NewClient(upstream.Options{
		Name:            name,
		Timeout:         config.Seconds(timeout),
		MaxRetries:      cfg.Retry.MaxRetries,
		InitialInterval: cfg.Retry.InitialInterval,
		Randomization:   cfg.Retry.Randomization,
		MaxBodyBytes:    cfg.Upstream.MaxBodyBytes,
		LogBodies:       cfg.Upstream.LogBodies,
	})
}
