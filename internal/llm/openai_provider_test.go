package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cvalign/internal/config"
	apperrors "cvalign/internal/errors"
)

func testOperationConfig(baseURL string) *config.OperationLLMConfig {
	timeout := 5 * time.Second
	var temperature float32 = 0.2
	useSystem := true

	return &config.OperationLLMConfig{
		Provider:         "openrouter",
		Model:            "openai/gpt-4o-mini",
		BaseURL:          baseURL,
		APIKey:           "test-key",
		Timeout:          &timeout,
		Temperature:      &temperature,
		UseSystemPrompts: &useSystem,
		CircuitBreaker:   config.CircuitBreakerConfig{Enabled: false},
	}
}

func testLogger(t *testing.T) *apperrors.Logger {
	t.Helper()
	logger, err := apperrors.New("error")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func TestOpenAIProviderComplete(t *testing.T) {
	var captured struct {
		path    string
		auth    string
		request chatCompletionsRequest
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.request); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "openai/gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "reply text"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOperationConfig(server.URL), "Modify", testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	text, usage, err := provider.Complete(context.Background(), "system instructions", "user prompt")
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}

	if text != "reply text" {
		t.Errorf("Expected 'reply text', got %q", text)
	}
	if usage == nil || usage.TotalTokens != 15 {
		t.Errorf("Expected token usage 15, got %+v", usage)
	}
	if captured.path != "/chat/completions" {
		t.Errorf("Expected /chat/completions path, got %s", captured.path)
	}
	if captured.auth != "Bearer test-key" {
		t.Errorf("Expected bearer auth, got %q", captured.auth)
	}
	if len(captured.request.Messages) != 2 {
		t.Fatalf("Expected system+user messages, got %d", len(captured.request.Messages))
	}
	if captured.request.Messages[0].Role != "system" || captured.request.Messages[1].Role != "user" {
		t.Errorf("Unexpected message roles: %+v", captured.request.Messages)
	}
}

func TestOpenAIProviderSystemPromptsDisabled(t *testing.T) {
	var messageCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		messageCount = len(req.Messages)

		if _, err := w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	cfg := testOperationConfig(server.URL)
	noSystem := false
	cfg.UseSystemPrompts = &noSystem

	provider, err := NewOpenAIProvider(cfg, "Modify", testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, _, err := provider.Complete(context.Background(), "system", "user"); err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if messageCount != 1 {
		t.Errorf("Expected only the user message, got %d messages", messageCount)
	}
}

func TestOpenAIProviderUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		if _, err := w.Write([]byte(`{"error": "rate limited"}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOperationConfig(server.URL), "Modify", testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, _, err = provider.Complete(context.Background(), "", "user prompt")
	if err == nil {
		t.Fatal("Expected error for non-2xx response")
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeUpstream {
		t.Errorf("Expected upstream error, got %s", appErr.Type)
	}
	if appErr.Context["status"] != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 in context, got %v", appErr.Context["status"])
	}
}

func TestOpenAIProviderNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"choices": []}`)); err != nil {
			t.Errorf("Failed to write response: %v", err)
		}
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOperationConfig(server.URL), "Modify", testLogger(t))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, _, err = provider.Complete(context.Background(), "", "user prompt")
	if err == nil {
		t.Fatal("Expected error for empty choices")
	}

	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		t.Fatalf("Expected AppError, got %T", err)
	}
	if appErr.Type != apperrors.ErrorTypeUpstream {
		t.Errorf("Expected upstream error, got %s", appErr.Type)
	}
}

func TestNewOpenAIProviderRequiresKey(t *testing.T) {
	cfg := testOperationConfig("http://localhost:1")
	cfg.APIKey = ""

	if _, err := NewOpenAIProvider(cfg, "Modify", testLogger(t)); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestNewServiceProviderSelection(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		expectError bool
	}{
		{name: "openrouter", provider: "openrouter"},
		{name: "openai", provider: "openai"},
		{name: "unknown provider", provider: "llamacpp", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testOperationConfig("http://localhost:1")
			cfg.Provider = tt.provider

			svc, err := NewService(cfg, "Modify", testLogger(t))

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if svc.Provider == nil {
				t.Fatal("Expected provider to be set")
			}
		})
	}
}
