package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLoggerAssignsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newEngine(Logger(zap.New(core)))

	w := get(r, nil)
	id := w.Header().Get(RequestIDHeader)
	if id == "" {
		t.Fatalf("missing request id header")
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["id"] != id || entries[0].ContextMap()["status"] != int64(200) {
		t.Fatalf("unexpected log entries %+v", entries)
	}

	w = get(r, http.Header{RequestIDHeader: {"abc"}})
	if w.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("incoming request id not kept")
	}
}

func TestMemoryLimiterBurst(t *testing.T) {
	l := NewMemoryLimiter(60, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
			t.Fatalf("request %d refused inside burst", i)
		}
	}
	ok, retry, _ := l.Allow(context.Background(), "1.2.3.4")
	if ok || retry <= 0 || retry > time.Second {
		t.Fatalf("third request ok=%v retry=%v", ok, retry)
	}
	if ok, _, _ := l.Allow(context.Background(), "5.6.7.8"); !ok {
		t.Fatalf("other client limited")
	}

	now = now.Add(time.Second)
	if ok, _, _ := l.Allow(context.Background(), "1.2.3.4"); !ok {
		t.Fatalf("token not refilled after a second")
	}

	now = now.Add(time.Hour)
	if n, _ := l.Sweep(context.Background()); n != 2 {
		t.Fatalf("swept %d buckets, want 2", n)
	}
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return s.ok, 1500 * time.Millisecond, s.err
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limiter Limiter
		reject  gin.HandlerFunc
		status  int
		body    string
	}{
		{name: "allowed", limiter: stubLimiter{ok: true}, status: http.StatusOK, body: "pong"},
		{name: "refused json", limiter: stubLimiter{}, status: http.StatusTooManyRequests, body: `"ok":0`},
		{
			name:    "refused custom",
			limiter: stubLimiter{},
			reject:  func(c *gin.Context) { c.String(http.StatusTooManyRequests, "slow") },
			status:  http.StatusTooManyRequests,
			body:    "slow",
		},
		{name: "limiter down", limiter: stubLimiter{err: errors.New("redis gone")}, status: http.StatusOK, body: "pong"},
	}
	for _, tt := range tests {
		r := newEngine(RateLimit(tt.limiter, zap.NewNop(), tt.reject))
		w := get(r, nil)
		if w.Code != tt.status || !strings.Contains(w.Body.String(), tt.body) {
			t.Fatalf("%s: got %d %q", tt.name, w.Code, w.Body.String())
		}
		if tt.status == http.StatusTooManyRequests && w.Header().Get("Retry-After") != "2" {
			t.Fatalf("%s: Retry-After = %q", tt.name, w.Header().Get("Retry-After"))
		}
	}
}
