package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"label-checker/internal/core/ai/cache"
	"label-checker/internal/core/ai/provider"
	"label-checker/internal/core/ai/queue"
	"label-checker/internal/pkg/common"
)

// Response is a model reply.
type Response struct {
	Content  string
	CacheHit bool
}

// Service fronts the model provider with the reply cache and the worker
// queue. A Service without a provider reports itself unavailable.
type Service struct {
	provider     provider.Provider
	cacheManager *cache.CacheManager
	queue        *queue.Manager
}

// NewService wires the collaborators. p may be nil when no model is
// configured; cacheManager may be nil when caching is disabled.
func NewService(p provider.Provider, cacheManager *cache.CacheManager, q *queue.Manager) *Service {
	if p != nil && q != nil {
		q.Start(p)
	}
	return &Service{
		provider:     p,
		cacheManager: cacheManager,
		queue:        q,
	}
}

// Available reports whether a model is configured.
func (s *Service) Available() bool {
	return s != nil && s.provider != nil
}

// Model returns the configured model name, or "" when unavailable.
func (s *Service) Model() string {
	if !s.Available() {
		return ""
	}
	return s.provider.GetModel()
}

// ProcessRequest sends prompt to the model, serving repeated prompts from
// the cache. It returns ErrAIUnavailable when no model is configured and
// wraps upstream failures in ErrAIServiceError.
func (s *Service) ProcessRequest(ctx context.Context, prompt string) (*Response, error) {
	if !s.Available() {
		return nil, common.ErrAIUnavailable
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, common.ErrEmptyText
	}

	if val, err := s.cacheManager.Get(ctx, prompt); err == nil && val != "" {
		return &Response{Content: val, CacheHit: true}, nil
	}

	var (
		resp *provider.Response
		err  error
	)
	req := provider.UserPrompt(prompt)
	if s.queue != nil {
		resp, err = s.queue.Submit(ctx, req)
	} else {
		resp, err = s.provider.Generate(ctx, req)
	}
	if err != nil {
		var ce *common.CustomError
		if errors.As(err, &ce) {
			return nil, err
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, common.ErrGatewayTimeout.WithErr(err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, common.ErrAIServiceError.WithErr(err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, common.ErrAIServiceError.WithErr(errors.New("empty model reply"))
	}

	if err := s.cacheManager.Set(ctx, prompt, content); err != nil {
		common.LogWarn("failed to cache model reply", zap.Error(err))
	}

	return &Response{Content: content}, nil
}

// QueueStatus returns the worker queue snapshot, or nil without a queue.
func (s *Service) QueueStatus() *queue.Status {
	if s == nil || s.queue == nil {
		return nil
	}
	return s.queue.GetQueueStatus()
}

// CacheStats returns the reply cache counters.
func (s *Service) CacheStats() cache.Stats {
	if s == nil {
		return cache.Stats{}
	}
	return s.cacheManager.GetStats()
}

// Close stops the queue and releases the provider.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	if s.queue != nil {
		s.queue.Close()
	}
	if s.provider != nil {
		return s.provider.Close()
	}
	return nil
}
