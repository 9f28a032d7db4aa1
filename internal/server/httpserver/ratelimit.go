package httpserver

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// DefaultLimiterIdleTTL is how long an unused client limiter is kept.
const DefaultLimiterIdleTTL = 10 * time.Minute

// sweepThreshold is the registry size above which idle limiters are swept.
const sweepThreshold = 10000

// RateLimiterRegistry manages one token-bucket limiter per client key.
type RateLimiterRegistry struct {
	mu       sync.RWMutex
	limiters map[string]*limiterEntry

	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // Unix nanoseconds
}

// NewRateLimiterRegistry creates a registry whose limiters allow rps
// requests per second with the given burst. A burst below 1 becomes
// ceil(rps).
func NewRateLimiterRegistry(rps float64, burst int) *RateLimiterRegistry {
	if burst < 1 {
		burst = int(rps)
		if float64(burst) < rps {
			burst++
		}
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  DefaultLimiterIdleTTL,
		now:      time.Now,
	}
}

// Allow reports whether a request from key may proceed now.
func (r *RateLimiterRegistry) Allow(key string) bool {
	now := r.now()
	entry := r.getOrCreate(key, now)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

func (r *RateLimiterRegistry) getOrCreate(key string, now time.Time) *limiterEntry {
	r.mu.RLock()
	entry, exists := r.limiters[key]
	r.mu.RUnlock()

	if exists {
		return entry
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists = r.limiters[key]; exists {
		return entry
	}
	if len(r.limiters) >= sweepThreshold {
		r.sweepLocked(now)
	}
	entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
	r.limiters[key] = entry
	return entry
}

// Sweep drops limiters idle for longer than the idle TTL.
func (r *RateLimiterRegistry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked(r.now())
}

func (r *RateLimiterRegistry) sweepLocked(now time.Time) {
	cutoff := now.Add(-r.idleTTL).UnixNano()
	for key, entry := range r.limiters {
		if entry.lastSeen.Load() < cutoff {
			delete(r.limiters, key)
		}
	}
}

// Delete removes the limiter for key.
func (r *RateLimiterRegistry) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.limiters, key)
}

// Len returns the number of tracked clients.
func (r *RateLimiterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}
