package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cvalign/internal/config"
	cvalignErrors "cvalign/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// OpenAIProvider implements ChatModel against any OpenAI-compatible
// chat-completions endpoint. It serves both the "openai" and
// "openrouter" provider names; the only difference is the base URL and
// the optional attribution headers OpenRouter accepts.
type OpenAIProvider struct {
	apiKey         string
	baseURL        string
	model          string
	referer        string
	title          string
	useSystem      bool
	temperature    float32
	httpClient     *http.Client
	config         *config.OperationLLMConfig
	circuitBreaker *CompletionCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *cvalignErrors.Logger
}

// Ensure OpenAIProvider implements ChatModel
var _ ChatModel = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a new OpenAI-compatible provider instance for a specific operation
func NewOpenAIProvider(cfg *config.OperationLLMConfig, operationType string, logger *cvalignErrors.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, cvalignErrors.NewConfigError(cvalignErrors.ErrCodeMissingAPIKey,
			"API key is required for the "+cfg.Provider+" provider", nil)
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}

	return &OpenAIProvider{
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		model:       cfg.Model,
		referer:     cfg.Referer,
		title:       cfg.Title,
		useSystem:   *cfg.UseSystemPrompts,
		temperature: *cfg.Temperature,
		httpClient: &http.Client{
			Timeout: *cfg.Timeout,
		},
		config:         cfg,
		circuitBreaker: NewCompletionCircuitBreaker(operationType, cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(operationType, cfg, logger),
		logger:         logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

// Complete implements ChatModel. One attempt, fixed timeout, no
// internal retries: a flaky upstream surfaces to the caller.
func (p *OpenAIProvider) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, *TokenUsage, error) {
	tracer := otel.Tracer("cvalign.llm.openai")
	ctx, span := tracer.Start(ctx, "openai.complete")
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.provider", p.config.Provider),
		attribute.String("llm.model", p.model),
		attribute.Float64("llm.temperature", float64(p.temperature)),
		attribute.Int("input.prompt_length", len(userPrompt)),
	)

	result, err := p.circuitBreaker.Execute(func() (*completion, error) {
		return p.complete(ctx, systemPrompt, userPrompt)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if _, ok := err.(*cvalignErrors.AppError); ok {
			return "", nil, err
		}
		return "", nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"Chat completion request failed", err)
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

// complete performs the actual HTTP round trip.
func (p *OpenAIProvider) complete(ctx context.Context, systemPrompt, userPrompt string) (*completion, error) {
	messages := make([]chatMessage, 0, 2)
	if p.useSystem && systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatCompletionsRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/chat/completions", p.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	if p.referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.referer)
	}
	if p.title != "" {
		httpReq.Header.Set("X-Title", p.title)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"Chat completion request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			fmt.Sprintf("Chat completion endpoint returned status %d", resp.StatusCode), nil).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(body))
	}

	var out chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"Failed to decode chat completion response", err)
	}
	if len(out.Choices) == 0 {
		return nil, cvalignErrors.NewUpstreamError(cvalignErrors.ErrCodeLLMServiceFailed,
			"No choices returned by model", nil)
	}

	var usage *TokenUsage
	if out.Usage != nil {
		usage = &TokenUsage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		}
	}

	return &completion{Text: out.Choices[0].Message.Content, Usage: usage}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (p *OpenAIProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	info, err := p.modelBreaker.ExecuteModel(func() (*ModelInfo, error) {
		return p.fetchModelInfo(checkCtx)
	})
	if err != nil {
		p.logger.Warn("Model availability check failed",
			"model", p.model,
			"provider", p.config.Provider,
			"error", err.Error())
		return &ModelInfo{
			Name:      p.model,
			Available: false,
			Error:     fmt.Sprintf("Failed to get model info: %v", err),
		}
	}
	return info
}

func (p *OpenAIProvider) fetchModelInfo(ctx context.Context) (*ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/models/%s", p.baseURL, p.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("models endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	info := &ModelInfo{Name: p.model, Available: true}
	if payload.ID != "" && payload.ID != p.model {
		info.DisplayName = payload.ID
	}
	return info, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (p *OpenAIProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"llm_operations":   p.circuitBreaker.GetStats(),
		"model_operations": p.modelBreaker.GetModelStats(),
	}
	stats["overall_healthy"] = p.circuitBreaker.IsHealthy() && p.modelBreaker.IsModelHealthy()
	return stats
}

// Close implements ChatModel
func (p *OpenAIProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// modelCheckTimeout bounds how long a health probe may hold up a caller.
const modelCheckTimeout = 10 * time.Second
