package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"odd-hq/decisioning/pkg/edge"
)

// DefaultMaxClients bounds the number of tracked rate limit buckets.
const DefaultMaxClients = 10000

// tokenBucket holds up to burst tokens, refilled continuously at the
// limiter's rate.
type tokenBucket struct {
	tokens float64
	last   time.Time
}

func (b *tokenBucket) refill(now time.Time, rate, burst float64) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(burst, b.tokens+elapsed*rate)
		b.last = now
	}
}

// RateLimiter keeps one token bucket per client.
type RateLimiter struct {
	rate       float64
	burst      float64
	maxClients int
	now        func() time.Time

	mu      sync.Mutex
	buckets map[string]*tokenBucket
}

// NewRateLimiter allows rate requests per second per client with bursts of
// up to burst requests. A burst below 1 defaults to twice the rate.
func NewRateLimiter(rate float64, burst, maxClients int) *RateLimiter {
	b := float64(burst)
	if b < 1 {
		b = math.Max(1, math.Ceil(rate*2))
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &RateLimiter{
		rate:       rate,
		burst:      b,
		maxClients: maxClients,
		now:        time.Now,
		buckets:    make(map[string]*tokenBucket),
	}
}

// Allow takes a token for key. When none is left it returns false and the
// time until the next token.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxClients {
			l.evictLocked(now)
		}
		b = &tokenBucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	b.refill(now, l.rate, l.burst)

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
	return false, wait
}

// Clients returns the number of tracked buckets.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// evictLocked drops the buckets of idle clients, or every bucket when all
// clients are active.
func (l *RateLimiter) evictLocked(now time.Time) {
	for key, b := range l.buckets {
		b.refill(now, l.rate, l.burst)
		if b.tokens >= l.burst {
			delete(l.buckets, key)
		}
	}
	if len(l.buckets) >= l.maxClients {
		clear(l.buckets)
	}
}

// RateLimit rejects requests over the client's budget with 429 and a
// Retry-After header. A nil limiter disables limiting.
func RateLimit(limiter *RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientKey(r)
			allowed, wait := limiter.Allow(key)
			if !allowed {
				logger.Debug("rate limit exceeded",
					"client", key,
					"request_id", GetRequestID(r),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				w.Header().Set(PoweredByHeader, PoweredBy)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the visitor by ECID cookie, else by the first
// X-Forwarded-For address, else by the remote address.
func ClientKey(r *http.Request) string {
	if c, err := r.Cookie(edge.ECIDCookieName); err == nil && c.Value != "" {
		return "ecid:" + c.Value
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return "ip:" + strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
