package auth

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"keeper/internal/platform/core"
)

// Throttle caps login attempts per client address within a fixed window.
type Throttle struct {
	mu     sync.Mutex
	hits   map[string]window
	limit  int
	period time.Duration
	now    func() time.Time
}

type window struct {
	count int
	reset time.Time
}

func NewThrottle(limit int, period time.Duration) *Throttle {
	return &Throttle{
		hits:   make(map[string]window),
		limit:  limit,
		period: period,
		now:    time.Now,
	}
}

// Allow counts one attempt for key and reports when its window resets.
func (t *Throttle) Allow(key string) (bool, time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	w, ok := t.hits[key]
	if !ok || now.After(w.reset) {
		w = window{reset: now.Add(t.period)}
	}
	if w.count >= t.limit {
		t.hits[key] = w
		return false, w.reset
	}
	w.count++
	t.hits[key] = w
	return true, w.reset
}

// Wrap rejects requests over the limit with 429 and Retry-After.
func (t *Throttle) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowed, reset := t.Allow(clientIP(r))
		if !allowed {
			retry := int(reset.Sub(t.now()).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			core.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many login attempts"})
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if ip := strings.TrimSpace(strings.Split(forwarded, ",")[0]); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}
