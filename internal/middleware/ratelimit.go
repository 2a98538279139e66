package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "telemetry-be/pkg/errors"
	"telemetry-be/pkg/logger"
	"telemetry-be/pkg/redis"
)

// Limiter decides whether one more request from the given caller is allowed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter counts requests per caller in Redis using a fixed window
// (INCR with an expiry set on the first hit). Works across replicas.
type RedisLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *logger.Logger
}

// NewRedisLimiter creates a Redis-backed fixed-window limiter
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, logger *logger.Logger) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(limit),
		window: window,
		logger: logger,
	}
}

// Allow increments the caller's window counter and compares it to the limit
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	counterKey := l.client.KeyBuilder.KeyIngestRateLimit(key)

	count, err := l.client.Incr(ctx, counterKey)
	if err != nil {
		return false, err
	}

	// Set expiry on first request
	if count == 1 {
		if err := l.client.Expire(ctx, counterKey, l.window); err != nil {
			l.logger.WithError(err).Warn("Failed to set rate limit key expiry")
		}
	}

	return count <= l.limit, nil
}

// LocalLimiter keeps one token bucket per caller in memory. Used when no
// Redis is configured; only valid for a single process.
type LocalLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocalLimiter creates an in-process per-caller limiter allowing
// perMinute requests per minute
func NewLocalLimiter(perMinute int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

// Allow checks the caller's token bucket
func (l *LocalLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	return limiter.Allow(), nil
}

// RateLimit creates a middleware that limits requests per caller IP. Limiter
// failures fail open: ingestion availability wins over limiter precision.
func RateLimit(limiter Limiter, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := callerKey(r)

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				logger.WithField("caller", key).Warn("Rate limit exceeded")
				apperrors.WriteResponse(w, apperrors.NewRateLimitError("Too many requests, slow down"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// callerKey identifies the caller by IP. RealIP middleware has already
// rewritten RemoteAddr when a proxy header is present.
func callerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
