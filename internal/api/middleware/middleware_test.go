package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestDeduplication(t *testing.T) {
	r := newEngine(Deduplication(time.Minute))

	if w := do(r, http.MethodPost, "/x", `{"text":"a"}`); w.Code != http.StatusOK {
		t.Fatalf("first request = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/x", `{"text":"a"}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("duplicate = %d, want 429", w.Code)
	}
	if w := do(r, http.MethodPost, "/x", `{"text":"b"}`); w.Code != http.StatusOK {
		t.Errorf("different body = %d", w.Code)
	}
	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodGet, "/x", ""); w.Code != http.StatusOK {
			t.Errorf("GET = %d, must not be deduplicated", w.Code)
		}
	}
}

func TestRequestCacheWindow(t *testing.T) {
	now := time.Unix(0, 0)
	rc := &requestCache{requests: map[string]time.Time{}, window: time.Second, now: func() time.Time { return now }}

	if rc.seen("a") {
		t.Fatal("first sighting reported as duplicate")
	}
	if !rc.seen("a") {
		t.Error("repeat within window not detected")
	}
	now = now.Add(2 * time.Second)
	if rc.seen("a") {
		t.Error("repeat after window reported as duplicate")
	}
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }
	rl.lastTime = now

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of capacity should pass")
	}
	if rl.Allow() {
		t.Error("third request should be limited")
	}
	// frequent calls must still accumulate fractional tokens
	for i := 0; i < 4; i++ {
		now = now.Add(100 * time.Millisecond)
		rl.Allow()
	}
	now = now.Add(200 * time.Millisecond)
	if !rl.Allow() {
		t.Error("token should have refilled")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(1, time.Minute))
	if w := do(r, http.MethodGet, "/x", ""); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/x", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))
	if w := do(r, http.MethodPost, "/x", "short"); w.Code != http.StatusOK {
		t.Errorf("small body = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/x", "this body is too long"); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body = %d", w.Code)
	}
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery(), Logger())
	w := do(r, http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) {
		t.Errorf("body = %s", w.Body.String())
	}
}
