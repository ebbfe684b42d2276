// Package usage records one immutable event per completed authenticated
// request and serves the read-side aggregates consumed by the profile and
// admin endpoints.
package usage

import (
	"context"
	"time"

	"github.com/quotahub/saas-auth-api/internal/model"
)

// Store is the persistence capability for usage events: an append plus the
// aggregates the stats views need. UsageRepo implements it against MySQL;
// MemoryStore implements it in-process for tests.
type Store interface {
	Append(ctx context.Context, ev model.UsageLog) (model.UsageLog, error)
	CountByUser(ctx context.Context, userID uint64) (int, error)
	CountByUserSince(ctx context.Context, userID uint64, since time.Time) (int, error)
	MostUsedEndpoint(ctx context.Context, userID uint64) (string, bool, error)
	AvgResponseTime(ctx context.Context, userID uint64) (float64, error)
}

// Publisher forwards a recorded event to the message broker. Failures are
// the publisher's problem; recording never depends on it.
type Publisher func(ctx context.Context, ev model.UsageLog)

// Stats is the per-user usage summary.
type Stats struct {
	TotalRequests       int     `json:"total_requests"`
	RequestsThisMonth   int     `json:"requests_this_month"`
	MostUsedEndpoint    string  `json:"most_used_endpoint"`
	AverageResponseTime float64 `json:"average_response_time"`
}

// Recorder appends usage events and answers stats queries. One event per
// completed request, no dedup, no batching.
type Recorder struct {
	store   Store
	publish Publisher // optional
	now     func() time.Time
}

func NewRecorder(store Store, publish Publisher) *Recorder {
	return &Recorder{store: store, publish: publish, now: func() time.Time { return time.Now().UTC() }}
}

// SetClock replaces the recorder's time source for tests.
func (r *Recorder) SetClock(now func() time.Time) { r.now = now }

// Record appends one immutable event for the request and hands it to the
// publisher when one is configured.
func (r *Recorder) Record(ctx context.Context, userID uint64, endpoint, method string, statusCode int, responseTimeMS *float64) (model.UsageLog, error) {
	ev := model.UsageLog{
		UserID:         userID,
		Endpoint:       endpoint,
		Method:         method,
		StatusCode:     statusCode,
		Timestamp:      r.now(),
		ResponseTimeMS: responseTimeMS,
	}
	ev, err := r.store.Append(ctx, ev)
	if err != nil {
		return model.UsageLog{}, err
	}
	if r.publish != nil {
		r.publish(ctx, ev)
	}
	return ev, nil
}

// UserStats builds the per-user summary: lifetime total, count since the
// start of the current calendar month (UTC), most-used endpoint ("N/A" when
// the user has no events) and mean response time over events that recorded
// one (0.0 when none did).
func (r *Recorder) UserStats(ctx context.Context, userID uint64) (Stats, error) {
	total, err := r.store.CountByUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	now := r.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthly, err := r.store.CountByUserSince(ctx, userID, monthStart)
	if err != nil {
		return Stats{}, err
	}
	endpoint, ok, err := r.store.MostUsedEndpoint(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	if !ok {
		endpoint = "N/A"
	}
	avg, err := r.store.AvgResponseTime(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalRequests:       total,
		RequestsThisMonth:   monthly,
		MostUsedEndpoint:    endpoint,
		AverageResponseTime: avg,
	}, nil
}
