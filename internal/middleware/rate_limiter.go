package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/vidshare/backend/internal/logging"
	"github.com/vidshare/backend/internal/response"
)

// RateLimiter controls how frequently a caller may perform an action. An
// error means the decision could not be made; the returned bool is still
// honoured.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter tracks request rates per key inside the process.
type MemoryRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryRateLimiter allows up to requests events per window with an
// additional burst capacity. Idle keys expire after ttl.
func NewMemoryRateLimiter(requests int, window time.Duration, burst int, ttl time.Duration) *MemoryRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &MemoryRateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if key == "" {
		key = "unknown"
	}

	now := l.now()

	l.mu.Lock()
	v := l.getVisitorLocked(key, now)
	l.gcLocked(now)
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1), nil
}

func (l *MemoryRateLimiter) getVisitorLocked(key string, now time.Time) *visitor {
	if v, ok := l.visitors[key]; ok {
		v.lastSeen = now
		return v
	}

	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), lastSeen: now}
	l.visitors[key] = v
	return v
}

func (l *MemoryRateLimiter) gcLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, key)
		}
	}
}

// WithNowFunc allows tests to override the time source.
func (l *MemoryRateLimiter) WithNowFunc(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// RedisRateLimiter counts requests per fixed window in Redis so the limit is
// shared by every instance of the service.
type RedisRateLimiter struct {
	client redis.UniversalClient
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisRateLimiter allows requests+burst events per key and window.
func NewRedisRateLimiter(client redis.UniversalClient, requests int, window time.Duration, burst int) *RedisRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if burst < 0 {
		burst = 0
	}
	return &RedisRateLimiter{
		client: client,
		limit:  int64(requests + burst),
		window: window,
		prefix: "vidshare:ratelimit:",
	}
}

// Allow fails open when Redis is unreachable.
func (l *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		key = "unknown"
	}

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, l.prefix+key)
	pipe.Expire(ctx, l.prefix+key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("increment rate counter: %w", err)
	}
	return incr.Val() <= l.limit, nil
}

// RateLimit rejects callers that exceed limiter for scope with 429.
func RateLimit(limiter RateLimiter, scope string, retryAfter time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			allowed, err := limiter.Allow(ctx, rateLimitKey(r, scope))
			if err != nil {
				logging.FromContext(ctx).Warn("rate limiter unavailable", slog.String("scope", scope), slog.Any("error", err))
			}
			if !allowed {
				if retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
				}
				response.Status(ctx, w, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request, scope string) string {
	ip := clientIP(r)
	if scope == "" {
		return ip
	}
	return fmt.Sprintf("%s:%s", scope, ip)
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}

var (
	_ RateLimiter = (*MemoryRateLimiter)(nil)
	_ RateLimiter = (*RedisRateLimiter)(nil)
)
