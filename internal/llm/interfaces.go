package llm

import (
	"context"
)

// ChatModel is the gateway contract every provider implements: one
// prompt in, one plain-text reply out. Replies are raw model text;
// recovery of structured content happens downstream.
// All methods return token usage information - callers can ignore it if not needed
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// BreakerStats is implemented by providers that expose circuit breaker state
type BreakerStats interface {
	GetCircuitBreakerStats() map[string]any
}

// TokenUsage represents token usage information from model responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the chat model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// completion is what a single provider call yields: the reply text plus
// whatever usage accounting the provider reports.
type completion struct {
	Text  string
	Usage *TokenUsage
}
