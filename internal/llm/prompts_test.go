package llm

import (
	"strings"
	"testing"

	"cvalign/internal/config"
	"cvalign/internal/types"
)

func TestBuildModifyPrompt(t *testing.T) {
	cfg := &config.OperationLLMConfig{}

	system, user := BuildModifyPrompt(cfg, "TEMPLATE-BODY", "JOB-POST", "CV-TEXT")

	if system != DefaultSystemPrompts.ModifyCV {
		t.Errorf("Expected default system prompt, got %q", system)
	}

	// Template, job, CV appear in that order under their headers
	templateIdx := strings.Index(user, "TEMPLATE-BODY")
	jobIdx := strings.Index(user, "JOB-POST")
	cvIdx := strings.Index(user, "CV-TEXT")
	if templateIdx == -1 || jobIdx == -1 || cvIdx == -1 {
		t.Fatalf("Expected all three sections in prompt, got:\n%s", user)
	}
	if !(templateIdx < jobIdx && jobIdx < cvIdx) {
		t.Errorf("Expected template before job before CV, got indices %d, %d, %d", templateIdx, jobIdx, cvIdx)
	}
}

func TestBuildModifyPromptDeterministic(t *testing.T) {
	cfg := &config.OperationLLMConfig{}

	first, _ := BuildModifyPrompt(cfg, "T", "J", "C")
	_, firstUser := BuildModifyPrompt(cfg, "T", "J", "C")
	second, _ := BuildModifyPrompt(cfg, "T", "J", "C")
	_, secondUser := BuildModifyPrompt(cfg, "T", "J", "C")

	if first != second || firstUser != secondUser {
		t.Error("Expected identical prompts for identical inputs")
	}
}

func TestBuildModifyPromptCustomOverride(t *testing.T) {
	cfg := &config.OperationLLMConfig{
		CustomPrompts: config.PromptConfig{
			SystemPrompts: config.SystemPrompts{ModifyCV: "custom system"},
			UserPrompts:   config.UserPrompts{ModifyCV: "tpl=%s job=%s cv=%s"},
		},
	}

	system, user := BuildModifyPrompt(cfg, "T", "J", "C")

	if system != "custom system" {
		t.Errorf("Expected custom system prompt, got %q", system)
	}
	if user != "tpl=T job=J cv=C" {
		t.Errorf("Expected custom user prompt filled, got %q", user)
	}
}

func TestBuildModifyJSONPrompt(t *testing.T) {
	cfg := &config.OperationLLMConfig{}

	_, user := BuildModifyJSONPrompt(cfg, "JOB-POST", "CV-TEXT")

	// The schema skeleton's top-level keys are all present
	for _, key := range []string{"name", "contact", "summary", "education", "experience", "projects", "skills", "publications"} {
		if !strings.Contains(user, `"`+key+`"`) {
			t.Errorf("Expected schema key %q in prompt", key)
		}
	}
	if !strings.Contains(user, "JOB-POST") || !strings.Contains(user, "CV-TEXT") {
		t.Error("Expected job and CV text in prompt")
	}
}

func TestBuildRankPrompt(t *testing.T) {
	cfg := &config.OperationLLMConfig{}
	postings := []types.JobPosting{
		{Title: "Backend Engineer", Employer: "Acme", Description: "Go services"},
		{Title: "Data Engineer", Employer: "Globex", Description: "Pipelines"},
	}

	_, user := BuildRankPrompt(cfg, "CV-TEXT", postings)

	if !strings.Contains(user, "Job 1: Backend Engineer at Acme") {
		t.Errorf("Expected first posting numbered from 1, got:\n%s", user)
	}
	if !strings.Contains(user, "Job 2: Data Engineer at Globex") {
		t.Errorf("Expected second posting numbered 2, got:\n%s", user)
	}
	if !strings.Contains(user, "Description: Go services") {
		t.Error("Expected posting description in prompt")
	}
	if !strings.Contains(user, "job_index") {
		t.Error("Expected reply shape instruction in prompt")
	}
}

func TestBuildScorePrompt(t *testing.T) {
	cfg := &config.OperationLLMConfig{}

	_, user := BuildScorePrompt(cfg, "JOB-DESC", "CV-TEXT")

	for _, key := range []string{"fair_match", "exp_level", "skill", "industry_exp"} {
		if !strings.Contains(user, key) {
			t.Errorf("Expected score key %q in prompt", key)
		}
	}

	jobIdx := strings.Index(user, "JOB-DESC")
	cvIdx := strings.Index(user, "CV-TEXT")
	if jobIdx == -1 || cvIdx == -1 || jobIdx > cvIdx {
		t.Errorf("Expected job description before CV, got indices %d, %d", jobIdx, cvIdx)
	}
}
