package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"label-checker/internal/core/ai/provider"
	"label-checker/internal/infrastructure/config"
	"label-checker/internal/pkg/common"
)

// Request is a queued model call.
type Request struct {
	Context context.Context
	Request *provider.Request
	Result  chan Result
}

// Result is the outcome of a queued call.
type Result struct {
	Response *provider.Response
	Error    error
}

// Status is a snapshot of the queue.
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	FailedCount    int64 `json:"failed_count"`
	ActiveWorkers  int64 `json:"active_workers"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager bounds concurrent model calls with a fixed pool of workers
// draining a buffered channel.
type Manager struct {
	config    config.QueueConfig
	queue     chan *Request
	done      chan struct{}
	processed int64
	failed    int64
	active    int64
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

func NewManager(cfg config.QueueConfig) *Manager {
	return &Manager{
		config: cfg,
		queue:  make(chan *Request, cfg.MaxSize),
		done:   make(chan struct{}),
	}
}

// Start launches the workers. Calls after the first are ignored.
func (m *Manager) Start(p provider.Provider) {
	m.startOnce.Do(func() {
		for i := 0; i < m.config.Workers; i++ {
			m.wg.Add(1)
			go m.worker(i, p)
		}
		common.LogInfo("queue workers started",
			zap.Int("workers", m.config.Workers),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
	})
}

func (m *Manager) worker(id int, p provider.Provider) {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case req := <-m.queue:
			m.handle(id, p, req)
		}
	}
}

func (m *Manager) handle(id int, p provider.Provider, req *Request) {
	atomic.AddInt64(&m.active, 1)
	defer atomic.AddInt64(&m.active, -1)

	if err := req.Context.Err(); err != nil {
		atomic.AddInt64(&m.failed, 1)
		req.Result <- Result{Error: err}
		return
	}

	resp, err := p.Generate(req.Context, req.Request)
	if err != nil {
		atomic.AddInt64(&m.failed, 1)
		common.LogDebug("queued request failed", zap.Int("worker", id), zap.Error(err))
	} else {
		atomic.AddInt64(&m.processed, 1)
	}
	req.Result <- Result{Response: resp, Error: err}
}

// Enqueue adds req without blocking. It fails with ErrQueueFull when the
// buffer is full and ErrQueueClosed after Close.
func (m *Manager) Enqueue(ctx context.Context, req *provider.Request) (<-chan Result, error) {
	select {
	case <-m.done:
		return nil, common.ErrQueueClosed
	default:
	}

	queueReq := &Request{
		Context: ctx,
		Request: req,
		Result:  make(chan Result, 1),
	}

	select {
	case m.queue <- queueReq:
		common.LogDebug("request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.config.MaxSize),
		)
		return queueReq.Result, nil
	default:
		common.LogWarn("queue full", zap.Int("max_queue_size", m.config.MaxSize))
		return nil, common.ErrQueueFull
	}
}

// Submit enqueues req and waits for its result.
func (m *Manager) Submit(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	result, err := m.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-result:
		return r.Response, r.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, common.ErrQueueClosed
	}
}

func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		FailedCount:    atomic.LoadInt64(&m.failed),
		ActiveWorkers:  atomic.LoadInt64(&m.active),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// Close stops the workers and waits for in-flight calls to return.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
	})
}
