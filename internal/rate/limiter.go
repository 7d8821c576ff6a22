package rate

import (
	"context"
	"sync"
	"time"
)

// Config defines client-side throttling for outbound API calls.
type Config struct {
	RequestsPerSecond int
	Burst             int
}

// Limiter implements a token bucket.
type Limiter struct {
	mu     sync.Mutex
	tokens float64
	last   time.Time
	rate   float64
	burst  float64
}

// New creates a limiter with a full bucket.
func New(cfg Config) *Limiter {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		tokens: float64(burst),
		last:   time.Now(),
		rate:   float64(cfg.RequestsPerSecond),
		burst:  float64(burst),
	}
}

// reserve takes a token if one is available; otherwise it returns how long
// until the next token accrues.
func (l *Limiter) reserve(now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	if l.rate <= 0 {
		return false, time.Second
	}
	deficit := 1 - l.tokens
	return false, time.Duration(deficit / l.rate * float64(time.Second))
}

// Allow takes a token without waiting.
func (l *Limiter) Allow() bool {
	ok, _ := l.reserve(time.Now())
	return ok
}

// Wait blocks until a token becomes available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, delay := l.reserve(time.Now())
		if ok {
			return nil
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// Manager holds one limiter per key (API route).
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
}

// NewManager returns nil when cfg disables throttling; a nil Manager never blocks.
func NewManager(cfg Config) *Manager {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: cfg,
	}
}

func (m *Manager) GetLimiter(key string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[key]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[key]; ok {
		return lim
	}
	lim := New(m.defaults)
	m.limiters[key] = lim
	return lim
}

// Wait ensures rate limit compliance for a given key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	if m == nil {
		return nil
	}
	return m.GetLimiter(key).Wait(ctx)
}
