package httpadapter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vbelyaev/docgate/internal/core/domain"
)

// clientRateLimiter throttles submissions per client address. Health and
// metrics probes are never throttled.
type clientRateLimiter struct {
	rps   rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientRateLimiter(rps float64, burst int) *clientRateLimiter {
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = 20
	}
	return &clientRateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: map[string]*clientLimiter{},
	}
}

func (l *clientRateLimiter) allow(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[host]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[host] = entry
	}
	entry.lastSeen = time.Now()

	if len(l.limiters) > 10000 {
		l.evictStaleLocked()
	}
	return entry.limiter.Allow()
}

func (l *clientRateLimiter) evictStaleLocked() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for host, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, host)
		}
	}
}

func (l *clientRateLimiter) middleware(onReject func(), next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		if !l.allow(r.RemoteAddr) {
			if onReject != nil {
				onReject()
			}
			writeJSON(w, http.StatusTooManyRequests, errorEnvelope{
				ErrorCode: domain.CodeOverloaded,
				Message:   "request rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
