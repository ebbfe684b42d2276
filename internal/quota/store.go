// Package quota implements the per-user admission decision: a Redis-backed
// rolling minute window combined with a persisted monthly usage record.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the counter capability the limiter depends on. Get,
// SetWithExpiry and Increment are the raw primitives; ConsumeWindow is the
// atomic read-compare-increment the limiter actually calls, because the
// three primitives composed at the application level would let concurrent
// requests both observe a stale count and slip past the limit.
//
// ConsumeWindow policy (read before increment): a missing key is created at
// 1 with the TTL and admitted; a value already at or above the limit is
// rejected without incrementing; anything else is incremented and admitted.
// So exactly `limit` requests are admitted per window.
type Store interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error
	Increment(ctx context.Context, key string) (int64, error)
	ConsumeWindow(ctx context.Context, key string, limit int64, ttl time.Duration) (bool, error)
}

// MinuteKey builds the namespaced counter key for a user's minute window.
func MinuteKey(userID uint64) string {
	return fmt.Sprintf("rate_limit:%d:minute", userID)
}

// consumeScript performs the read-compare-increment as one atomic unit on
// the Redis side. Returns the counter value after admission, or -1 when the
// request is rejected.
var consumeScript = redis.NewScript(`
    local current = redis.call('GET', KEYS[1])
    if current == false then
        redis.call('SET', KEYS[1], 1, 'EX', tonumber(ARGV[2]))
        return 1
    end
    if tonumber(current) >= tonumber(ARGV[1]) then
        return -1
    end
    return redis.call('INCR', KEYS[1])
`)

// RedisStore implements Store on a shared Redis instance.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

func (s *RedisStore) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *RedisStore) SetWithExpiry(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	return s.rdb.Incr(ctx, key).Result()
}

func (s *RedisStore) ConsumeWindow(ctx context.Context, key string, limit int64, ttl time.Duration) (bool, error) {
	v, err := consumeScript.Run(ctx, s.rdb, []string{key}, limit, int64(ttl/time.Second)).Int64()
	if err != nil {
		return false, err
	}
	return v != -1, nil
}

// MemoryStore is a mutex-guarded in-process Store with the same expiry and
// admission semantics as RedisStore. It backs tests and is not suitable for
// multi-process deployments.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     int64
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// SetClock replaces the store's time source; tests use it to advance the
// window without sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		return 0, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) SetWithExpiry(_ context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		// Matches Redis INCR on a missing key: created without expiry.
		s.entries[key] = memoryEntry{value: 1}
		return 1, nil
	}
	e.value++
	s.entries[key] = e
	return e.value, nil
}

func (s *MemoryStore) ConsumeWindow(_ context.Context, key string, limit int64, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	if !ok {
		s.entries[key] = memoryEntry{value: 1, expiresAt: s.now().Add(ttl)}
		return true, nil
	}
	if e.value >= limit {
		return false, nil
	}
	e.value++
	s.entries[key] = e
	return true, nil
}
