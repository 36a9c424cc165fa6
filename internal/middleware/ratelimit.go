package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	pkgredis "github.com/reviewinsight/server/internal/pkg/redis"
	"github.com/reviewinsight/server/internal/pkg/response"
)

// Limiter decides whether one more request for key fits its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// MemoryLimiter is a per-key token bucket held in process.
type MemoryLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	buckets map[string]*bucket
	idle    time.Duration
	now     func() time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewMemoryLimiter allows perMinute requests per key with the given burst.
func NewMemoryLimiter(perMinute, burst int) *MemoryLimiter {
	if burst < 1 {
		burst = 1
	}
	return &MemoryLimiter{
		every:   rate.Limit(float64(perMinute) / 60),
		burst:   burst,
		buckets: make(map[string]*bucket),
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Minute, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay, nil
	}
	return true, 0, nil
}

// Sweep drops buckets idle for longer than ten minutes.
func (l *MemoryLimiter) Sweep(context.Context) (int, error) {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed, nil
}

// RedisLimiter counts requests per key in fixed one-minute windows, so the
// budget is shared by every instance behind the same Redis.
type RedisLimiter struct {
	client *pkgredis.Client
	prefix string
	limit  int64
	now    func() time.Time
}

func NewRedisLimiter(client *pkgredis.Client, prefix string, perMinute int) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix + "rate_limit:", limit: int64(perMinute), now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := l.now()
	window := now.Truncate(time.Minute)
	count, err := l.client.Incr(ctx, fmt.Sprintf("%s%s:%d", l.prefix, key, window.Unix()), time.Minute+time.Second)
	if err != nil {
		return true, 0, err
	}
	if count > l.limit {
		return false, window.Add(time.Minute).Sub(now), nil
	}
	return true, 0, nil
}

// RateLimit guards the routes behind it per client IP. reject writes the
// refusal; nil sends the JSON envelope. Limiter errors let the request through.
func RateLimit(l Limiter, log *zap.Logger, reject gin.HandlerFunc) gin.HandlerFunc {
	if reject == nil {
		reject = response.TooManyRequests
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ok, retryAfter, err := l.Allow(c.Request.Context(), ip)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			reject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
