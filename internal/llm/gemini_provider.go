package llm

import (
	"context"
	"fmt"

	"cvalign/internal/config"
	cvalignErrors "cvalign/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiProvider implements ChatModel for Google Gemini
type GeminiProvider struct {
	client         *genai.Client
	config         *config.OperationLLMConfig
	circuitBreaker *CompletionCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *cvalignErrors.Logger
}

// Ensure GeminiProvider implements ChatModel
var _ ChatModel = (*GeminiProvider)(nil)

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationLLMConfig, operationType string, logger *cvalignErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewCompletionCircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

// Complete implements ChatModel. The reply is plain text; no response
// schema is imposed so the recovery pipeline sees what the model said.
func (g *GeminiProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("cvalign.llm.gemini")
	ctx, span := tracer.Start(ctx, "gemini.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", "gemini"),
		attribute.String("llm.model", g.config.Model),
		attribute.Float64("llm.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.prompt_length", len(userPrompt)),
	)

	genaiConfig := &genai.GenerateContentConfig{}
	if *g.config.Temperature > 0 {
		genaiConfig.Temperature = g.config.Temperature
	}
	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	callCtx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	result, err := g.circuitBreaker.Execute(func() (*completion, error) {
		resp, err := g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		if err != nil {
			return nil, err
		}
		return &completion{Text: resp.Text(), Usage: extractTokenUsage(resp)}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"Failed to generate content", err)
	}

	if result.Usage != nil {
		span.SetAttributes(
			attribute.Int64("llm.tokens.input", result.Usage.InputTokens),
			attribute.Int64("llm.tokens.output", result.Usage.OutputTokens),
			attribute.Int64("llm.tokens.total", result.Usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))

	return result.Text, result.Usage, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := g.modelBreaker.ExecuteModel(func() (*ModelInfo, error) {
		model, err := g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
		if err != nil {
			return nil, err
		}
		modelInfo := &ModelInfo{Name: g.config.Model, Available: true}
		if model.DisplayName != "" {
			modelInfo.DisplayName = model.DisplayName
		}
		if model.Version != "" {
			modelInfo.Version = model.Version
		}
		return modelInfo, nil
	})
	if err != nil {
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return &ModelInfo{
			Name:      g.config.Model,
			Available: false,
			Error:     fmt.Sprintf("Failed to get model info: %v", err),
		}
	}
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"llm_operations":   g.circuitBreaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}
	stats["overall_healthy"] = g.circuitBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()
	return stats
}

// Close implements ChatModel
func (g *GeminiProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// extractTokenUsage extracts token usage information from a Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
