package usage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/quotahub/saas-auth-api/internal/model"
)

// MemoryStore is an in-process Store used by the unit tests. It applies the
// same aggregate semantics as UsageRepo: average excludes events without a
// recorded latency, and the most-used endpoint tie-breaks on descending
// count then ascending endpoint string.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint64
	events []model.UsageLog
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Append(_ context.Context, ev model.UsageLog) (model.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	ev.ID = s.nextID
	s.events = append(s.events, ev)
	return ev, nil
}

func (s *MemoryStore) CountByUser(_ context.Context, userID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountByUserSince(_ context.Context, userID uint64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ev := range s.events {
		if ev.UserID == userID && !ev.Timestamp.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) MostUsedEndpoint(_ context.Context, userID uint64) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for _, ev := range s.events {
		if ev.UserID == userID {
			counts[ev.Endpoint]++
		}
	}
	if len(counts) == 0 {
		return "", false, nil
	}
	endpoints := make([]string, 0, len(counts))
	for e := range counts {
		endpoints = append(endpoints, e)
	}
	sort.Slice(endpoints, func(i, j int) bool {
		if counts[endpoints[i]] != counts[endpoints[j]] {
			return counts[endpoints[i]] > counts[endpoints[j]]
		}
		return endpoints[i] < endpoints[j]
	})
	return endpoints[0], true, nil
}

func (s *MemoryStore) AvgResponseTime(_ context.Context, userID uint64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum, n := 0.0, 0
	for _, ev := range s.events {
		if ev.UserID == userID && ev.ResponseTimeMS != nil {
			sum += *ev.ResponseTimeMS
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}
