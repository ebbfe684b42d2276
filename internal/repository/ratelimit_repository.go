package repository

import (
	"context"
	"database/sql"

	"github.com/quotahub/saas-auth-api/internal/limits"
	"github.com/quotahub/saas-auth-api/internal/model"
)

// RateLimitRepo owns the per-user monthly usage record in 'rate_limits'.
// It implements quota.MonthlyStore.
type RateLimitRepo struct{ DB *sql.DB }

func NewRateLimitRepo(db *sql.DB) *RateLimitRepo { return &RateLimitRepo{DB: db} }

// Consume applies one unit of monthly quota for the user and reports
// whether the request is admitted. Three statements:
//
//  1. ensure the record exists, created with the plan's cached limits and a
//     fresh reset timestamp; on conflict also refresh the cached limits so
//     plan changes propagate;
//  2. lazy reset: zero the counter when 30 days have elapsed since the last
//     reset, measured at this check (no background sweeper);
//  3. conditional increment: bump usage only while it is below the quota.
//
// Step 3 is a single UPDATE whose WHERE clause re-checks the quota, so two
// concurrent requests at usage = quota-1 serialize on the row lock and only
// one passes. This is deliberately not a read-then-write pair.
func (r *RateLimitRepo) Consume(ctx context.Context, userID uint64, l limits.PlanLimits) (bool, error) {
	_, err := r.DB.ExecContext(ctx, `
        INSERT INTO rate_limits (user_id, requests_per_minute, monthly_quota, current_monthly_usage, last_monthly_reset)
        VALUES (?,?,?,0,UTC_TIMESTAMP())
        ON DUPLICATE KEY UPDATE requests_per_minute=VALUES(requests_per_minute),
                                monthly_quota=VALUES(monthly_quota)`,
		userID, l.RequestsPerMinute, l.MonthlyQuota)
	if err != nil {
		return false, err
	}

	_, err = r.DB.ExecContext(ctx, `
        UPDATE rate_limits
        SET current_monthly_usage=0, last_monthly_reset=UTC_TIMESTAMP()
        WHERE user_id=? AND last_monthly_reset <= DATE_SUB(UTC_TIMESTAMP(), INTERVAL 30 DAY)`,
		userID)
	if err != nil {
		return false, err
	}

	res, err := r.DB.ExecContext(ctx, `
        UPDATE rate_limits
        SET current_monthly_usage=current_monthly_usage+1
        WHERE user_id=? AND current_monthly_usage < monthly_quota`,
		userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Get returns the monthly record for a user, or sql.ErrNoRows if no check
// has ever run for them.
func (r *RateLimitRepo) Get(ctx context.Context, userID uint64) (model.RateLimit, error) {
	var rl model.RateLimit
	err := r.DB.QueryRowContext(ctx, `
        SELECT user_id, requests_per_minute, monthly_quota, current_monthly_usage, last_monthly_reset
        FROM rate_limits WHERE user_id=? LIMIT 1`, userID).
		Scan(&rl.UserID, &rl.RequestsPerMinute, &rl.MonthlyQuota, &rl.CurrentMonthlyUsage, &rl.LastMonthlyReset)
	return rl, err
}

// RefreshLimits rewrites the cached plan limits after a plan change so the
// next admin report shows the new tier without waiting for the next check.
func (r *RateLimitRepo) RefreshLimits(ctx context.Context, userID uint64, l limits.PlanLimits) error {
	_, err := r.DB.ExecContext(ctx, `
        UPDATE rate_limits SET requests_per_minute=?, monthly_quota=? WHERE user_id=?`,
		l.RequestsPerMinute, l.MonthlyQuota, userID)
	return err
}
