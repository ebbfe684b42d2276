package model

import "time"

// RateLimit models a row in the `rate_limits` table: the per-user monthly
// usage record. The per-minute limit and monthly quota are cached copies of
// the plan-derived limits so reporting queries do not need a join; the
// limiter refreshes them whenever the plan changes.
//
// current_monthly_usage only grows within a reset window. The reset is
// lazy: it happens on the next admission check once 30 days have elapsed
// since LastMonthlyReset. There is no background sweeper.
type RateLimit struct {
	UserID              uint64    // rate_limits.user_id (unique)
	RequestsPerMinute   int       // rate_limits.requests_per_minute (cached limit)
	MonthlyQuota        int       // rate_limits.monthly_quota (cached limit)
	CurrentMonthlyUsage int       // rate_limits.current_monthly_usage
	LastMonthlyReset    time.Time // rate_limits.last_monthly_reset
}

// UsageLog is one immutable usage event in the `usage_logs` table. Rows are
// append-only; nothing in the application mutates them after insert.
// ResponseTimeMS is nil when no latency was recorded for the request.
type UsageLog struct {
	ID             uint64    // usage_logs.id
	UserID         uint64    // usage_logs.user_id
	Endpoint       string    // usage_logs.endpoint
	Method         string    // usage_logs.method
	StatusCode     int       // usage_logs.status_code
	Timestamp      time.Time // usage_logs.timestamp
	ResponseTimeMS *float64  // usage_logs.response_time_ms (nullable)
}

// Subscription records a plan change in the `subscriptions` table. Payment
// provider plumbing is out of scope; the row is the audit trail of who was
// on which plan when.
type Subscription struct {
	ID        uint64    // subscriptions.id
	UserID    uint64    // subscriptions.user_id
	Plan      string    // subscriptions.plan
	Status    string    // subscriptions.status (active, canceled)
	CreatedAt time.Time // subscriptions.created_at
}
