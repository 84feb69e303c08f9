package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"consultly/internal/config"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// rateLimiter hands out one token bucket per key. Buckets idle for longer
// than idle are dropped on the next sweep.
type rateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	cfg       config.APIRateLimitConfig
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	return &rateLimiter{
		entries: make(map[string]*limiterEntry),
		cfg:     cfg,
		idle:    limiterIdleTTL,
		now:     time.Now,
	}
}

func (l *rateLimiter) Allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}

	e, ok := l.entries[key]
	if !ok {
		burst := l.cfg.Burst
		if burst <= 0 {
			burst = 5
		}
		e = &limiterEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}

func (l *rateLimiter) sweepLocked(now time.Time) {
	for key, e := range l.entries {
		if now.Sub(e.lastSeen) >= l.idle {
			delete(l.entries, key)
		}
	}
	l.lastSweep = now
}

func (l *rateLimiter) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *rateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
