package gemini

import (
	"testing"

	"peerprep/interview/internal/llm"
	"peerprep/interview/internal/models"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("EVALUATION_MODEL", "custom")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	if cfg.APIKey != "key" || cfg.Model != "custom" {
		t.Fatalf("unexpected config values: %+v", cfg)
	}
}

func TestNewConfigDefaultModel(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("EVALUATION_MODEL", "")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Model != models.DefaultEvaluationModel {
		t.Fatalf("expected default model, got %s", cfg.Model)
	}
}

func TestNewConfigMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := NewConfig(); err == nil {
		t.Fatal("expected error when API key missing")
	}
}

func TestRegisteredProviderReportsMissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := llm.NewProvider(ProviderName)
	if code := llm.ErrorCode(err); code != llm.ErrCodeAPIKey {
		t.Fatalf("error code = %q (%v), want %q", code, err, llm.ErrCodeAPIKey)
	}
}
