package middleware

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a sliding-window limiter keyed by an arbitrary string.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time
	stop    chan struct{}
}

func NewRateLimiter(requests, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	rl := &RateLimiter{
		limit:   requests,
		window:  time.Duration(windowSeconds) * time.Second,
		now:     time.Now,
		clients: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go rl.sweep(time.Minute)
	return rl
}

// Stop ends the background sweep.
func (rl *RateLimiter) Stop() {
	close(rl.stop)
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.window)
			rl.mu.Lock()
			for key, hits := range rl.clients {
				if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow records a hit for key when it is under the limit. It returns the
// remaining allowance and the time the oldest counted hit leaves the window.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	hits := rl.clients[key]
	first := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })
	hits = hits[first:]

	if len(hits) >= rl.limit {
		rl.clients[key] = hits
		return false, 0, hits[0].Add(rl.window)
	}

	hits = append(hits, now)
	rl.clients[key] = hits
	return true, rl.limit - len(hits), hits[0].Add(rl.window)
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// ByIP keys on the socket address only.
func ByIP(r *http.Request) string {
	return TrustedProxies(nil).ByIP(r)
}

// ByUser keys on the user when authenticated, otherwise on the socket address.
func ByUser(r *http.Request) string {
	return TrustedProxies(nil).ByUser(r)
}

// RateLimit rejects requests over the limit with 429.
func RateLimit(requests, windowSeconds int, key KeyFunc) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(requests, windowSeconds)
	return limiter.Middleware(key)
}

func (rl *RateLimiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := rl.Allow(key(r))

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				retry := int64(reset.Sub(rl.now()).Seconds()) + 1
				h.Set("Retry-After", strconv.FormatInt(retry, 10))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
