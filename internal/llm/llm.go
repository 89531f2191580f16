// internal/llm/llm.go
package llm

import (
	"context"
)

// LLM defines the interface for text-generation providers
type LLM interface {

	// GenerateResponse returns the reply text for a prompt
	GenerateResponse(ctx context.Context, prompt string) (string, error)

	// IsModelAvailable checks if the configured model is available
	IsModelAvailable(ctx context.Context) error
}

// ReplyPrompt asks the model to answer in the user's own language.
func ReplyPrompt(userText string) string {
	return "You are a helpful assistant. Reply in the same language as the user. User: " + userText
}
