package llm

import (
	"context"
	"fmt"

	"cvalign/internal/config"
	"cvalign/internal/errors"
)

// Service handles chat-model calls for one operation type
type Service struct {
	Provider ChatModel // Exported for access from server package
	config   *config.OperationLLMConfig
	logger   *errors.Logger
}

// NewService creates a new gateway service instance with configuration for a specific operation
func NewService(cfg *config.OperationLLMConfig, operationType string, logger *errors.Logger) (*Service, error) {
	var provider ChatModel
	var err error

	logger.Debug("Initializing LLM service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"use_system_prompts", *cfg.UseSystemPrompts)

	switch cfg.Provider {
	case "openrouter", "openai":
		provider, err = NewOpenAIProvider(cfg, operationType, logger)
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported LLM provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		return nil, errors.NewUpstreamError(errors.ErrCodeLLMServiceFailed,
			"Failed to create LLM provider", err)
	}

	return &Service{
		Provider: provider,
		config:   cfg,
		logger:   logger,
	}, nil
}

// Complete sends one prompt to the configured provider and returns the
// raw reply text.
func (s *Service) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	return s.Provider.Complete(ctx, systemPrompt, userPrompt)
}

// GetModelInfo returns information about the chat model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns breaker state when the provider exposes it
func (s *Service) GetCircuitBreakerStats() map[string]any {
	if stats, ok := s.Provider.(BreakerStats); ok {
		return stats.GetCircuitBreakerStats()
	}
	return map[string]any{"enabled": false}
}

// Close releases provider resources
func (s *Service) Close() error {
	return s.Provider.Close()
}
