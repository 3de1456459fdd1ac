package main

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hubenschmidt/persian-voice-chat/internal/clock"
	"github.com/hubenschmidt/persian-voice-chat/internal/metrics"
)

const rateWindow = time.Minute

// rateLimiter admits at most limit requests per client IP in any sliding minute.
type rateLimiter struct {
	limit int
	clock clock.Clock

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newRateLimiter(limit int, clk clock.Clock) *rateLimiter {
	return &rateLimiter{limit: limit, clock: clk, hits: map[string][]time.Time{}, lastSweep: clk.Now()}
}

func (l *rateLimiter) allow(ip string) bool {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= rateWindow {
		for k, ts := range l.hits {
			if len(recent(ts, now)) == 0 {
				delete(l.hits, k)
			}
		}
		l.lastSweep = now
	}

	ts := recent(l.hits[ip], now)
	if len(ts) >= l.limit {
		l.hits[ip] = ts
		return false
	}
	l.hits[ip] = append(ts, now)
	return true
}

// recent drops timestamps older than the window; ts is in arrival order.
func recent(ts []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= rateWindow {
		i++
	}
	return ts[i:]
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.allow(ip) {
			slog.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			metrics.Errors.WithLabelValues("gateway", "rate_limited").Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"detail": "Rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// securityHeaders sets the browser hardening headers; HSTS only in production.
func securityHeaders(production bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-XSS-Protection", "1; mode=block")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if production {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

// withMiddleware wraps the mux: headers first so 429 responses carry them too.
func withMiddleware(cfg config, clk clock.Clock, h http.Handler) http.Handler {
	if cfg.maxRequestsPerMinute > 0 {
		h = newRateLimiter(cfg.maxRequestsPerMinute, clk).middleware(h)
	}
	return securityHeaders(cfg.environment == "production", h)
}
