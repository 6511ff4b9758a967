package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"label-checker/internal/core/ai/provider"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

// OpenRouterService talks to an OpenAI-compatible /chat/completions API.
type OpenRouterService struct {
	config config.OpenRouterConfig
	client *resty.Client
}

var _ provider.Provider = (*OpenRouterService)(nil)

// NewOpenRouterService creates the client. It does not check the key;
// callers consult config.OpenRouterConfig.Available first.
func NewOpenRouterService(cfg config.OpenRouterConfig) *OpenRouterService {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.APIKey)).
		SetHeader("Content-Type", "application/json").
		SetHeader("HTTP-Referer", cfg.Referer).
		SetHeader("X-Title", cfg.Title)

	return &OpenRouterService{
		config: cfg,
		client: client,
	}
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Temperature float64            `json:"temperature"`
	Stop        []string           `json:"stop,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage provider.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate sends req and returns the first choice. Zero MaxTokens and
// Temperature fall back to the configured values.
func (s *OpenRouterService) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	body := chatRequest{
		Model:       s.config.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stop:        req.Stop,
	}
	if body.MaxTokens == 0 {
		body.MaxTokens = s.config.MaxTokens
	}
	if body.Temperature == 0 {
		body.Temperature = s.config.Temperature
	}

	start := time.Now()
	var result chatResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	duration := time.Since(start)

	if err != nil {
		common.LogAICall(s.config.Model, duration, err)
		return nil, fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		msg := resp.String()
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		err := fmt.Errorf("OpenRouter API returned %d: %s", resp.StatusCode(), msg)
		common.LogAICall(s.config.Model, duration, err)
		return nil, err
	}

	if len(result.Choices) == 0 {
		err := fmt.Errorf("no choices in OpenRouter response")
		common.LogAICall(s.config.Model, duration, err)
		return nil, err
	}

	common.LogAICall(s.config.Model, duration, nil)
	common.LogDebug("openrouter usage",
		zap.Int("prompt_tokens", result.Usage.PromptTokens),
		zap.Int("completion_tokens", result.Usage.CompletionTokens),
	)

	return &provider.Response{
		Content: result.Choices[0].Message.Content,
		Model:   result.Model,
		Usage:   result.Usage,
	}, nil
}

func (s *OpenRouterService) GetModel() string {
	return s.config.Model
}

func (s *OpenRouterService) GetTimeout() time.Duration {
	return s.config.Timeout
}

// Close releases idle connections.
func (s *OpenRouterService) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}
