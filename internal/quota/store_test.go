package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinuteKey(t *testing.T) {
	assert.Equal(t, "rate_limit:42:minute", MinuteKey(42))
}

func TestMemoryStorePrimitives(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetWithExpiry(ctx, "k", 5, time.Minute))
	v, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 5, v)

	n, err := s.Increment(ctx, "k")
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
}

func TestConsumeWindowAdmitsExactlyLimit(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := MinuteKey(1)

	for i := 0; i < 60; i++ {
		ok, err := s.ConsumeWindow(ctx, key, 60, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i+1)
	}
	// The 61st in the same window is rejected and must not increment.
	ok, err := s.ConsumeWindow(ctx, key, 60, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, _, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.EqualValues(t, 60, v)
}

func TestConsumeWindowExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	s.SetClock(func() time.Time { return now })
	key := MinuteKey(1)

	ok, err := s.ConsumeWindow(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.ConsumeWindow(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A fresh window opens once the counter expires.
	now = now.Add(61 * time.Second)
	ok, err = s.ConsumeWindow(ctx, key, 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConsumeWindowConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := MinuteKey(7)

	const workers = 100
	const limit = 60

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ConsumeWindow(ctx, key, limit, time.Minute)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, limit, admitted)
}
