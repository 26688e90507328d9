package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOperationConfigFallbacks(t *testing.T) {
	globalTimeout := 30 * time.Second
	rankTimeout := 60 * time.Second
	var globalTemp float32 = 0.7

	cfg := &Config{
		LLM: LLMConfig{
			Provider:    "openrouter",
			Model:       "openai/gpt-4o-mini",
			BaseURL:     "https://openrouter.ai/api/v1",
			Timeout:     globalTimeout,
			APIKey:      "global-key",
			Temperature: globalTemp,
			Rank: OperationLLMConfig{
				Timeout: &rankTimeout,
			},
			Score: OperationLLMConfig{
				Provider: "gemini",
				Model:    "gemini-2.0-flash",
				APIKey:   "score-key",
			},
		},
	}

	t.Run("rank inherits globals except timeout", func(t *testing.T) {
		rank := cfg.GetRankConfig()

		if rank.Provider != "openrouter" {
			t.Errorf("Expected provider 'openrouter', got '%s'", rank.Provider)
		}
		if rank.Model != "openai/gpt-4o-mini" {
			t.Errorf("Expected global model fallback, got '%s'", rank.Model)
		}
		if rank.APIKey != "global-key" {
			t.Errorf("Expected global API key fallback, got '%s'", rank.APIKey)
		}
		if rank.Timeout == nil || *rank.Timeout != rankTimeout {
			t.Errorf("Expected rank-specific timeout %v, got %v", rankTimeout, rank.Timeout)
		}
	})

	t.Run("score keeps operation overrides", func(t *testing.T) {
		score := cfg.GetScoreConfig()

		if score.Provider != "gemini" {
			t.Errorf("Expected provider 'gemini', got '%s'", score.Provider)
		}
		if score.Model != "gemini-2.0-flash" {
			t.Errorf("Expected model 'gemini-2.0-flash', got '%s'", score.Model)
		}
		if score.APIKey != "score-key" {
			t.Errorf("Expected operation API key, got '%s'", score.APIKey)
		}
		if score.Timeout == nil || *score.Timeout != globalTimeout {
			t.Errorf("Expected global timeout fallback %v, got %v", globalTimeout, score.Timeout)
		}
	})

	t.Run("custom prompts fall back to global", func(t *testing.T) {
		cfg.LLM.CustomPrompts.UserPrompts.ModifyCV = "custom modify prompt %s %s %s"
		modify := cfg.GetModifyConfig()

		if modify.CustomPrompts.UserPrompts.ModifyCV != "custom modify prompt %s %s %s" {
			t.Errorf("Expected global custom prompt fallback, got '%s'", modify.CustomPrompts.UserPrompts.ModifyCV)
		}
	})
}

func TestValidateTLSConfig(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
	}{
		{
			name:        "disabled mode",
			tls:         TLSConfig{Mode: "disabled"},
			expectError: false,
		},
		{
			name:        "server mode with cert and key",
			tls:         TLSConfig{Mode: "server", CertFile: "cert.pem", KeyFile: "key.pem"},
			expectError: false,
		},
		{
			name:        "server mode missing key",
			tls:         TLSConfig{Mode: "server", CertFile: "cert.pem"},
			expectError: true,
		},
		{
			name:        "invalid mode",
			tls:         TLSConfig{Mode: "mutual"},
			expectError: true,
		},
		{
			name:        "invalid min version",
			tls:         TLSConfig{Mode: "disabled", MinVersion: "1.1"},
			expectError: true,
		},
		{
			name:        "valid 1.3 min version",
			tls:         TLSConfig{Mode: "disabled", MinVersion: "1.3"},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()

			if tt.expectError && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoadTemplate(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cfg := &Config{Template: TemplateConfig{Path: filepath.Join(t.TempDir(), "missing.tex")}}

		if _, err := cfg.LoadTemplate(); err == nil {
			t.Error("Expected error for missing template file")
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.tex")
		if err := os.WriteFile(path, []byte("   \n"), 0o644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		cfg := &Config{Template: TemplateConfig{Path: path}}
		if _, err := cfg.LoadTemplate(); err == nil {
			t.Error("Expected error for empty template file")
		}
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "template.tex")
		content := "\\documentclass{article}\n\\begin{document}\n\\end{document}\n"
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write test file: %v", err)
		}

		cfg := &Config{Template: TemplateConfig{Path: path}}
		got, err := cfg.LoadTemplate()
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if got != content {
			t.Errorf("Expected template content to round-trip, got '%s'", got)
		}
	})
}
