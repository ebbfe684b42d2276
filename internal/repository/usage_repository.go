package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/quotahub/saas-auth-api/internal/model"
)

// UsageRepo appends and aggregates rows in the append-only 'usage_logs'
// table. Rows are never updated or deleted. It implements usage.Store.
type UsageRepo struct{ DB *sql.DB }

func NewUsageRepo(db *sql.DB) *UsageRepo { return &UsageRepo{DB: db} }

// Append inserts one usage event and returns it with its assigned ID.
func (r *UsageRepo) Append(ctx context.Context, ev model.UsageLog) (model.UsageLog, error) {
	res, err := r.DB.ExecContext(ctx, `
        INSERT INTO usage_logs (user_id, endpoint, method, status_code, timestamp, response_time_ms)
        VALUES (?,?,?,?,?,?)`,
		ev.UserID, ev.Endpoint, ev.Method, ev.StatusCode, ev.Timestamp, ev.ResponseTimeMS)
	if err != nil {
		return model.UsageLog{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.UsageLog{}, err
	}
	ev.ID = uint64(id)
	return ev, nil
}

// CountByUser returns the total number of events recorded for a user.
func (r *UsageRepo) CountByUser(ctx context.Context, userID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_logs WHERE user_id=?", userID).Scan(&n)
	return n, err
}

// CountByUserSince returns the number of events for a user at or after the
// given timestamp.
func (r *UsageRepo) CountByUserSince(ctx context.Context, userID uint64, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_logs WHERE user_id=? AND timestamp >= ?", userID, since).Scan(&n)
	return n, err
}

// MostUsedEndpoint returns the endpoint with the highest event count for a
// user. Ties break on ascending endpoint string so the result is
// deterministic. ok is false when the user has no events.
func (r *UsageRepo) MostUsedEndpoint(ctx context.Context, userID uint64) (string, bool, error) {
	var endpoint string
	err := r.DB.QueryRowContext(ctx, `
        SELECT endpoint FROM usage_logs WHERE user_id=?
        GROUP BY endpoint ORDER BY COUNT(*) DESC, endpoint ASC LIMIT 1`, userID).
		Scan(&endpoint)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return endpoint, true, nil
}

// AvgResponseTime returns the mean response time in milliseconds over the
// user's events that recorded one; events with a NULL latency are excluded
// and the result is 0.0 when none qualify.
func (r *UsageRepo) AvgResponseTime(ctx context.Context, userID uint64) (float64, error) {
	var avg sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, `
        SELECT AVG(response_time_ms) FROM usage_logs
        WHERE user_id=? AND response_time_ms IS NOT NULL`, userID).Scan(&avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

// CountSince returns the system-wide event count at or after the timestamp.
func (r *UsageRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM usage_logs WHERE timestamp >= ?", since).Scan(&n)
	return n, err
}

// LastRequestAt returns the timestamp of a user's most recent event, or ok
// false when they have none.
func (r *UsageRepo) LastRequestAt(ctx context.Context, userID uint64) (time.Time, bool, error) {
	var ts sql.NullTime
	err := r.DB.QueryRowContext(ctx,
		"SELECT MAX(timestamp) FROM usage_logs WHERE user_id=?", userID).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return ts.Time, true, nil
}
