package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"label-checker/internal/core/ai/provider"
	"label-checker/internal/infrastructure/config"
)

func testConfig(baseURL string) config.OpenRouterConfig {
	return config.OpenRouterConfig{
		APIKey:      "sk-test",
		Model:       "test/model",
		BaseURL:     baseURL,
		MaxTokens:   2000,
		Temperature: 0.3,
		Timeout:     5 * time.Second,
		Referer:     "http://localhost:3000",
		Title:       "Etiket Kontrol",
	}
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if r.Header.Get("X-Title") != "Etiket Kontrol" || r.Header.Get("HTTP-Referer") == "" {
			t.Errorf("missing attribution headers")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test/model","choices":[{"message":{"content":"{\"overallStatus\":\"safe\"}"}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	svc := NewOpenRouterService(testConfig(srv.URL))
	resp, err := svc.Generate(context.Background(), provider.UserPrompt("merhaba"))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != `{"overallStatus":"safe"}` {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 42 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if got.Model != "test/model" || got.MaxTokens != 2000 || got.Temperature != 0.3 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "merhaba" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"upstream error", http.StatusUnauthorized, `{"error":{"message":"No auth credentials found"}}`, "No auth credentials found"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOpenRouterService(testConfig(srv.URL)).Generate(context.Background(), provider.UserPrompt("x"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}
