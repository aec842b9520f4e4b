// Package ratelimit throttles application submissions per caller with token
// buckets.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "travelcred/pkg/domain-errors"
	"travelcred/pkg/platform/httputil"
	request "travelcred/pkg/platform/middleware/request"
	"travelcred/pkg/requestcontext"
)

const defaultIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per key. Buckets idle for longer than the
// TTL are evicted on access.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the clock used for refill and eviction.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithIdleTTL overrides how long an unused bucket is kept.
func WithIdleTTL(ttl time.Duration) Option {
	return func(l *Limiter) { l.idleTTL = ttl }
}

// New builds a limiter allowing perMinute requests per key with the given
// burst. A non-positive perMinute disables limiting.
func New(perMinute, burst int, opts ...Option) *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Inf,
		burst:   burst,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
	}
	if perMinute > 0 {
		l.limit = rate.Limit(float64(perMinute) / 60.0)
		if l.burst <= 0 {
			l.burst = 1
		}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow consumes one token for key and reports whether the request may
// proceed, and if not, how long until a token is available.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	if l.limit == rate.Inf {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := b.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// PerCaller limits requests by authenticated caller, falling back to the
// client IP. Rejected requests get 429 and never reach the registry.
func (l *Limiter) PerCaller(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "caller:" + requestcontext.Caller(ctx).String()
			if requestcontext.Caller(ctx).IsZero() {
				key = "ip:" + requestcontext.ClientIP(ctx)
			}

			allowed, retryAfter := l.Allow(key)
			if !allowed {
				logger.WarnContext(ctx, "application rate limited",
					"key", key,
					"retry_after_ms", retryAfter.Milliseconds(),
					"request_id", request.GetRequestID(ctx),
				)
				secs := int(retryAfter.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many applications, retry later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
