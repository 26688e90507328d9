package llm

import (
	"testing"
	"time"

	"cvalign/internal/config"
)

func TestIndependentCircuitBreakerConfigurations(t *testing.T) {
	// Each operation gets its own circuit breaker configuration

	modifyConfig := &config.OperationLLMConfig{
		Provider: "openrouter",
		Model:    "openai/gpt-4o-mini",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      3,
			Interval:         60 * time.Second,
			Timeout:          60 * time.Second,
			MinRequests:      3,
			FailureThreshold: 0.6,
		},
	}

	rankConfig := &config.OperationLLMConfig{
		Provider: "openrouter",
		Model:    "openai/gpt-4o-mini",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      5,                // Different from modify
			Interval:         30 * time.Second, // Different from modify
			Timeout:          45 * time.Second, // Different from modify
			MinRequests:      2,                // Different from modify
			FailureThreshold: 0.7,              // Different from modify
		},
	}

	scoreConfig := &config.OperationLLMConfig{
		Provider: "gemini",
		Model:    "gemini-2.0-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      4,
			Interval:         90 * time.Second,
			Timeout:          75 * time.Second,
			MinRequests:      5,
			FailureThreshold: 0.5,
		},
	}

	modifyCB := NewCompletionCircuitBreaker("Modify", modifyConfig, nil)
	rankCB := NewCompletionCircuitBreaker("Rank", rankConfig, nil)
	scoreCB := NewCompletionCircuitBreaker("Score", scoreConfig, nil)

	t.Run("ModifyCircuitBreaker", func(t *testing.T) {
		stats := modifyCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}

		expectedName := "LLM-Modify"
		if name != expectedName {
			t.Errorf("Expected circuit breaker name '%s', got '%s'", expectedName, name)
		}

		state, ok := stats["state"].(string)
		if !ok {
			t.Fatal("Circuit breaker state not found")
		}
		if state != "closed" {
			t.Errorf("Expected initial state 'closed', got '%s'", state)
		}

		enabled, ok := stats["enabled"].(bool)
		if !ok {
			t.Fatal("Circuit breaker enabled status not found")
		}
		if !enabled {
			t.Error("Circuit breaker should be enabled")
		}
	})

	t.Run("RankCircuitBreaker", func(t *testing.T) {
		stats := rankCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}

		expectedName := "LLM-Rank"
		if name != expectedName {
			t.Errorf("Expected circuit breaker name '%s', got '%s'", expectedName, name)
		}
	})

	t.Run("ScoreCircuitBreaker", func(t *testing.T) {
		stats := scoreCB.GetStats()

		name, ok := stats["name"].(string)
		if !ok {
			t.Fatal("Circuit breaker name not found")
		}

		expectedName := "LLM-Score"
		if name != expectedName {
			t.Errorf("Expected circuit breaker name '%s', got '%s'", expectedName, name)
		}
	})

	t.Run("IndependentInstances", func(t *testing.T) {
		if modifyCB == rankCB {
			t.Error("Modify and rank circuit breakers should be different instances")
		}
		if modifyCB == scoreCB {
			t.Error("Modify and score circuit breakers should be different instances")
		}
		if rankCB == scoreCB {
			t.Error("Rank and score circuit breakers should be different instances")
		}
	})

	t.Run("IndependentHealthStates", func(t *testing.T) {
		if !modifyCB.IsHealthy() {
			t.Error("Modify circuit breaker should be healthy initially")
		}
		if !rankCB.IsHealthy() {
			t.Error("Rank circuit breaker should be healthy initially")
		}
		if !scoreCB.IsHealthy() {
			t.Error("Score circuit breaker should be healthy initially")
		}
	})
}

func TestCircuitBreakerDisabled(t *testing.T) {
	// Circuit breaker factory returns nil when disabled

	disabledConfig := &config.OperationLLMConfig{
		Provider: "openrouter",
		Model:    "test-model",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled: false,
		},
	}

	cb := NewCompletionCircuitBreaker("Disabled", disabledConfig, nil)
	if cb != nil {
		t.Fatal("Circuit breaker should be nil when disabled")
	}

	// A nil breaker executes the function directly
	result, err := cb.Execute(func() (*completion, error) {
		return &completion{Text: "direct"}, nil
	})
	if err != nil {
		t.Fatalf("Expected direct execution, got error: %v", err)
	}
	if result.Text != "direct" {
		t.Errorf("Expected direct result, got %q", result.Text)
	}
}

func TestModelCircuitBreakerDisabled(t *testing.T) {
	disabledConfig := &config.OperationLLMConfig{
		CircuitBreaker: config.CircuitBreakerConfig{Enabled: false},
	}

	cb := NewModelCircuitBreaker("Disabled", disabledConfig, nil)
	if cb != nil {
		t.Fatal("Model circuit breaker should be nil when disabled")
	}

	info, err := cb.ExecuteModel(func() (*ModelInfo, error) {
		return &ModelInfo{Name: "m", Available: true}, nil
	})
	if err != nil {
		t.Fatalf("Expected direct execution, got error: %v", err)
	}
	if !info.Available {
		t.Error("Expected model info to pass through")
	}
}
