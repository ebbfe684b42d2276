package quota

import (
	"context"
	"sync"
	"time"

	"github.com/quotahub/saas-auth-api/internal/limits"
)

// resetInterval is how long a monthly record lives before the lazy reset
// zeroes it. There is no background sweeper; the reset is applied at the
// next Consume for that user.
const resetInterval = 30 * 24 * time.Hour

// MemoryMonthlyStore is a mutex-guarded in-process MonthlyStore with the
// same record lifecycle as the SQL implementation: the record is created on
// first use with the plan's cached limits, cached limits are refreshed on
// every call, the counter is zeroed once 30 days have elapsed since the
// last reset, and the increment is conditional on usage being below the
// quota. It backs tests and single-process deployments without MySQL.
type MemoryMonthlyStore struct {
	mu      sync.Mutex
	records map[uint64]*monthlyRecord
	now     func() time.Time
}

type monthlyRecord struct {
	requestsPerMinute int
	monthlyQuota      int
	usage             int
	lastReset         time.Time
}

func NewMemoryMonthlyStore() *MemoryMonthlyStore {
	return &MemoryMonthlyStore{records: make(map[uint64]*monthlyRecord), now: time.Now}
}

// SetClock replaces the store's time source; tests use it to cross the
// 30-day boundary without sleeping.
func (s *MemoryMonthlyStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryMonthlyStore) Consume(_ context.Context, userID uint64, l limits.PlanLimits) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	rec, ok := s.records[userID]
	if !ok {
		rec = &monthlyRecord{lastReset: now}
		s.records[userID] = rec
	}
	rec.requestsPerMinute = l.RequestsPerMinute
	rec.monthlyQuota = l.MonthlyQuota

	if !now.Before(rec.lastReset.Add(resetInterval)) {
		rec.usage = 0
		rec.lastReset = now
	}

	if rec.usage >= rec.monthlyQuota {
		return false, nil
	}
	rec.usage++
	return true, nil
}

// Usage reports the current counter for a user; zero when no check has
// ever run for them.
func (s *MemoryMonthlyStore) Usage(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return 0
	}
	return rec.usage
}
