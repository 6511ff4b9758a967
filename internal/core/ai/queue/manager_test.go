package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"label-checker/internal/core/ai/provider"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

type echoProvider struct {
	release chan struct{}
	err     error
}

func (p *echoProvider) Generate(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return &provider.Response{Content: req.Messages[0].Content}, nil
}

func (p *echoProvider) GetModel() string { return "echo" }
func (p *echoProvider) GetTimeout() time.Duration { return time.Second }
func (p *echoProvider) Close() error { return nil }

func TestSubmit(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 3, MaxSize: 10})
	m.Start(&echoProvider{})
	defer m.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := m.Submit(context.Background(), provider.UserPrompt("merhaba"))
			if err != nil || resp.Content != "merhaba" {
				t.Errorf("Submit = %+v, %v", resp, err)
			}
		}()
	}
	wg.Wait()

	if s := m.GetQueueStatus(); s.ProcessedCount != 8 || s.Workers != 3 {
		t.Errorf("status = %+v", s)
	}
}

func TestSubmitProviderError(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1})
	m.Start(&echoProvider{err: boom})
	defer m.Close()

	if _, err := m.Submit(context.Background(), provider.UserPrompt("x")); !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if s := m.GetQueueStatus(); s.FailedCount != 1 {
		t.Errorf("status = %+v", s)
	}
}

func TestEnqueueFull(t *testing.T) {
	// no workers started, so nothing drains the buffer
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1})
	defer m.Close()

	if _, err := m.Enqueue(context.Background(), provider.UserPrompt("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Enqueue(context.Background(), provider.UserPrompt("b")); !errors.Is(err, common.ErrQueueFull) {
		t.Errorf("err = %v, want queue full", err)
	}
}

func TestSubmitContextCancel(t *testing.T) {
	p := &echoProvider{release: make(chan struct{})}
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 2})
	m.Start(p)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Submit(ctx, provider.UserPrompt("slow")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v", err)
	}
}

func TestEnqueueAfterClose(t *testing.T) {
	m := NewManager(config.QueueConfig{Workers: 1, MaxSize: 1})
	m.Start(&echoProvider{})
	m.Close()
	m.Close()

	if _, err := m.Enqueue(context.Background(), provider.UserPrompt("x")); !errors.Is(err, common.ErrQueueClosed) {
		t.Errorf("err = %v", err)
	}
}
