package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEmbeddingConfig_OverlapMustBeSmallerThanChunkSize(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Embedding.ChunkOverlap = cfg.Embedding.ChunkSize
	if err := cfg.Validate(); err == nil {
		t.Fatal("overlap >= chunk size should fail validation")
	}
}

func TestEmbeddingConfig_RequiresModel(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Embedding.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty model should fail validation")
	}
}

func TestSearchConfig_MinSimilarityBounds(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.MinSimilarity = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("min similarity above 1 should fail validation")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
