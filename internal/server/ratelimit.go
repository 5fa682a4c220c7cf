package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"resumescore/internal/errors"
	"resumescore/internal/observability"
)

const limiterIdleTimeout = 10 * time.Minute

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller (user, API key or IP).
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	rate    rate.Limit
	burst   int
	done    chan struct{}
	logger  *errors.Logger
}

// NewRateLimiter allows requestsPerMin per caller with bursts of up to burst requests.
// Idle callers are forgotten after ten minutes.
func NewRateLimiter(requestsPerMin int, burst int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*client),
		rate:    rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burst,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop(limiterIdleTimeout)
	return rl
}

// Allow reports whether key may make a request now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

// GetStats is reported by /stats
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"enabled":         true,
		"active_clients":  len(rl.clients),
		"rate_per_minute": float64(rl.rate) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evict(now.Add(-idle))
		case <-rl.done:
			return
		}
	}
}

// evict drops callers not seen since cutoff
func (rl *RateLimiter) evict(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
	rl.logger.Debug("Rate limiter eviction completed", "remaining_clients", len(rl.clients))
}

// Close stops the eviction loop
func (rl *RateLimiter) Close() {
	close(rl.done)
}

// rateLimitMiddleware rejects callers over their budget with 429 and counts the
// rejection as a rate_limit_hit business event. It runs after authentication so
// signed-in users are limited per account rather than per token or address.
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil || s.RateLimit == nil || !s.RateLimit.Enabled {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := s.rateLimitKey(r)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			s.Logger.Info("Rate limit exceeded",
				"key", maskAPIKey(key),
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.om.Metrics().RecordBusinessEvent(r.Context(), observability.EventRateLimitHit, true,
				attribute.String("endpoint", r.URL.Path),
				attribute.String("method", r.Method))
			writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
		}
	}
}

// rateLimitKey picks the bucket for r: the signed-in user, then the API key, then the IP.
// An empty key means the request is not limited.
func (s *Server) rateLimitKey(r *http.Request) string {
	if claims := claimsFrom(r.Context()); claims != nil {
		return "user:" + claims.UserID.String()
	}

	if s.RateLimit.ByAPIKey {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if key = strings.TrimSpace(key); key != "" {
			return "api:" + key
		}
	}

	if s.RateLimit.ByIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP, then RemoteAddr
func getClientIP(r *http.Request) string {
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip = strings.TrimSpace(ip); net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
