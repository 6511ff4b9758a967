package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, env := range []string{"OPENROUTER_API_KEY", "PORT", "AI_MODE", "MIN_OCR_TEXT_LENGTH"} {
		t.Setenv(env, "")
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.OpenRouter.Model != "deepseek/deepseek-r1-0528:free" {
		t.Errorf("model = %q", cfg.OpenRouter.Model)
	}
	if cfg.OpenRouter.Temperature != 0.3 || cfg.OpenRouter.MaxTokens != 2000 {
		t.Errorf("sampling = %v/%d", cfg.OpenRouter.Temperature, cfg.OpenRouter.MaxTokens)
	}
	if cfg.OCR.Language != "tur" || cfg.OCR.Engine != 2 {
		t.Errorf("ocr = %+v", cfg.OCR)
	}
	if cfg.Analysis.MinOCRTextLength != 10 {
		t.Errorf("min ocr length = %d", cfg.Analysis.MinOCRTextLength)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("cache ttl = %v", cfg.Cache.TTL)
	}
	if cfg.AI.Mode != "auto" {
		t.Errorf("ai mode = %q", cfg.AI.Mode)
	}
	if cfg.OpenRouter.Available() {
		t.Error("empty key must not be available")
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-or-test-1234567890")
	t.Setenv("PORT", "8081")
	t.Setenv("REFERENCE_PATH", "/etc/label/reference.yaml")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.OpenRouter.Available() {
		t.Error("key from environment should make the model available")
	}
	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Reference.Path != "/etc/label/reference.yaml" {
		t.Errorf("reference path = %q", cfg.Reference.Path)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("window = %v", cfg.RateLimit.Window)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name, env, value string
	}{
		{"mode", "AI_MODE", "sometimes"},
		{"port", "PORT", "0"},
		{"rate limit", "RATE_LIMIT_REQUESTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			if _, err := LoadConfig(); err == nil {
				t.Errorf("%s=%s should be rejected", tt.env, tt.value)
			}
		})
	}
}

func TestOpenRouterAvailable(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"", false},
		{"   ", false},
		{PlaceholderAPIKey, false},
		{"sk-or-v1-abc", true},
	}
	for _, tt := range tests {
		if got := (OpenRouterConfig{APIKey: tt.key}).Available(); got != tt.want {
			t.Errorf("Available(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("short"); got != "****" {
		t.Errorf("got %q", got)
	}
	if got := MaskAPIKey("sk-or-1234567890"); got != "sk-o...7890" {
		t.Errorf("got %q", got)
	}
}
