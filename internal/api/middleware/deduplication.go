package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-checker/internal/pkg/common"
)

const defaultDedupWindow = time.Second

type requestCache struct {
	mu        sync.Mutex
	requests  map[string]time.Time
	window    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

// seen records fingerprint and reports whether it was already recorded
// within the window. Stale entries are pruned every ten windows.
func (rc *requestCache) seen(fingerprint string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	now := rc.now()
	if now.Sub(rc.lastPrune) > 10*rc.window {
		for k, t := range rc.requests {
			if now.Sub(t) > rc.window {
				delete(rc.requests, k)
			}
		}
		rc.lastPrune = now
	}

	if last, ok := rc.requests[fingerprint]; ok && now.Sub(last) <= rc.window {
		return true
	}
	rc.requests[fingerprint] = now
	return false
}

// Deduplication rejects a POST whose path and body repeat an earlier
// request seen within window. A zero window uses one second.
func Deduplication(window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = defaultDedupWindow
	}
	cache := &requestCache{
		requests: make(map[string]time.Time),
		window:   window,
		now:      time.Now,
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				common.LogWarn("failed to read request body", zap.Error(err))
				abort(c, common.ErrPayloadTooLarge)
				return
			}

			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])

			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		fingerprint := c.Request.Method + ":" + c.Request.URL.Path
		if bodyHash != "" {
			fingerprint += ":" + bodyHash
		}

		if cache.seen(fingerprint) {
			common.LogInfo("duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			abort(c, common.ErrTooManyRequests)
			return
		}

		c.Next()
	}
}
