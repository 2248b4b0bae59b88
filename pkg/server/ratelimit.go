package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"mercator-hq/beacon/pkg/config"
	"mercator-hq/beacon/pkg/telemetry/logging"
	"mercator-hq/beacon/pkg/telemetry/metrics"
)

// tokenBucket allows bursts up to capacity while holding the average
// rate at refillRate tokens per second.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	now        func() time.Time
}

func newTokenBucket(capacity int, refillRate float64, now func() time.Time) *tokenBucket {
	if now == nil {
		now = time.Now
	}
	return &tokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// take consumes one token. When none is available it returns false and
// the time until one will be.
func (tb *tokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked()
	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	wait := (1 - tb.tokens) / tb.refillRate
	return false, time.Duration(wait * float64(time.Second))
}

// refillLocked adds tokens for the time elapsed since the last refill.
// Caller must hold lock.
func (tb *tokenBucket) refillLocked() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.capacity, tb.tokens+elapsed*tb.refillRate)
	tb.lastRefill = now
}

// RateLimitMiddleware rejects requests with 429 once the token bucket
// described by cfg is empty. A zero rate returns next unchanged.
// throttled, when non-nil, counts rejected requests.
func RateLimitMiddleware(cfg config.RateLimitConfig, throttled *metrics.Counter, logger logging.LevelLogger) func(http.Handler) http.Handler {
	return rateLimitMiddleware(cfg, throttled, logger, time.Now)
}

func rateLimitMiddleware(cfg config.RateLimitConfig, throttled *metrics.Counter, logger logging.LevelLogger, now func() time.Time) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	bucket := newTokenBucket(burst, cfg.RequestsPerSecond, now)
	logger = logging.OrNop(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := bucket.take()
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			if throttled != nil {
				throttled.Inc()
			}
			logger.Warn("request throttled",
				"method", r.Method,
				"path", r.URL.Path,
				"retry_after_ms", wait.Milliseconds(),
				"request_id", logging.GetRequestID(r.Context()),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		})
	}
}
