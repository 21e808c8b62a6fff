package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// keyLimiter holds a per-key token bucket and the last time it was used.
type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter is a per-key token bucket limiter held in process memory.
// A background goroutine drops idle keys until Stop is called.
type MemoryLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	r        rate.Limit
	b        int
	idle     time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter allows requests per period for each key, with bursts of
// up to requests.
func NewMemoryLimiter(requests int, period time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}
	l.r, l.b, l.idle = budget(requests, period)
	go l.cleanup(l.idle / 2)
	return l
}

// SetBudget changes the allowance for every key, keeping the tokens each key
// has already spent.
func (l *MemoryLimiter) SetBudget(requests int, period time.Duration) {
	r, b, idle := budget(requests, period)

	l.mu.Lock()
	defer l.mu.Unlock()
	if r == l.r && b == l.b {
		return
	}
	l.r, l.b, l.idle = r, b, idle
	for _, kl := range l.limiters {
		kl.limiter.SetLimit(r)
		kl.limiter.SetBurst(b)
	}
}

func budget(requests int, period time.Duration) (rate.Limit, int, time.Duration) {
	if requests <= 0 {
		requests = 1
	}
	if period <= 0 {
		period = time.Hour
	}
	return rate.Limit(float64(requests) / period.Seconds()), requests, period
}

// Allow consumes a token for key if one is available.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	reservation := l.get(key).Reserve()
	if d := reservation.Delay(); d > 0 {
		// Return the token; this request is rejected.
		reservation.Cancel()
		return Decision{Allowed: false, RetryAfter: d}, nil
	}
	return Decision{Allowed: true}, nil
}

// Stop shuts down the cleanup goroutine. It is safe to call multiple times.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Len returns the number of keys currently tracked.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *MemoryLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.limiters[key]
	if !ok {
		kl = &keyLimiter{limiter: rate.NewLimiter(l.r, l.b)}
		l.limiters[key] = kl
	}
	kl.lastSeen = time.Now()
	return kl.limiter
}

func (l *MemoryLimiter) cleanup(every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, kl := range l.limiters {
		if now.Sub(kl.lastSeen) > l.idle {
			delete(l.limiters, key)
		}
	}
}
