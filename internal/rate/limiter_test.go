package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 10, Burst: 5})

	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed, "burst count allowed immediately")
}

func TestLimiter_Refill(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 100, Burst: 2})
	for lim.Allow() {
	}

	time.Sleep(50 * time.Millisecond)
	assert.True(t, lim.Allow(), "token available after refill period")
}

func TestLimiter_ZeroBurstStillAllowsOne(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1, Burst: 0})
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow())
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 1, Burst: 1})
	require.True(t, lim.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := lim.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_WaitReturnsWhenTokenAccrues(t *testing.T) {
	lim := New(Config{RequestsPerSecond: 50, Burst: 1})
	require.True(t, lim.Allow())

	start := time.Now()
	require.NoError(t, lim.Wait(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestManager_DisabledIsNil(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 0})
	assert.Nil(t, m)
	assert.NoError(t, m.Wait(context.Background(), "/auth/login"))
}

func TestManager_PerKeyLimiters(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 10, Burst: 1})

	a := m.GetLimiter("/invitation-designs")
	b := m.GetLimiter("/invitation-tones")
	assert.NotSame(t, a, b)
	assert.Same(t, a, m.GetLimiter("/invitation-designs"))
}

func TestManager_ConcurrentGetLimiter(t *testing.T) {
	m := NewManager(Config{RequestsPerSecond: 10, Burst: 1})

	var wg sync.WaitGroup
	got := make([]*Limiter, 20)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = m.GetLimiter("same")
		}(i)
	}
	wg.Wait()

	for _, l := range got {
		assert.Same(t, got[0], l)
	}
}
