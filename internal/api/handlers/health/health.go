package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/core/ai/cache"
	"label-checker/internal/core/ai/queue"
	"label-checker/internal/pkg/common"
)

// AIStats reports on the model pipeline.
type AIStats interface {
	Available() bool
	Model() string
	QueueStatus() *queue.Status
	CacheStats() cache.Stats
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the health routes.
type Handler struct {
	version  string
	ai       AIStats
	ocrReady func() bool
	deps     map[string]Pinger
	now      func() time.Time
}

// NewHandler creates a Handler. deps are pinged by ReadinessCheck; nil
// entries are skipped.
func NewHandler(version string, ai AIStats, ocrReady func() bool, deps map[string]Pinger) *Handler {
	return &Handler{
		version:  version,
		ai:       ai,
		ocrReady: ocrReady,
		deps:     deps,
		now:      time.Now,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Services  ServiceStatus          `json:"services"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *queue.Status          `json:"queue,omitempty"`
	Cache     *cache.Stats           `json:"cache,omitempty"`
}

// ServiceStatus reports which upstream collaborators are configured.
type ServiceStatus struct {
	AI      bool   `json:"ai"`
	Model   string `json:"model,omitempty"`
	OCR     bool   `json:"ocr"`
	Barcode bool   `json:"barcode"`
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: h.now(),
		Version:   h.version,
		Services: ServiceStatus{
			OCR:     h.ocrReady != nil && h.ocrReady(),
			Barcode: true,
		},
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}

	if h.ai != nil {
		response.Services.AI = h.ai.Available()
		response.Services.Model = h.ai.Model()
		response.Queue = h.ai.QueueStatus()
		stats := h.ai.CacheStats()
		if stats.MaxSize > 0 {
			response.Cache = &stats
		}
	}

	common.LogDebug("health check", zap.String("client_ip", c.ClientIP()))

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck handles GET /ready by pinging every dependency.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	ready := true
	for name, dep := range h.deps {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			common.LogWarn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
	})
}

// LivenessCheck handles GET /live.
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
