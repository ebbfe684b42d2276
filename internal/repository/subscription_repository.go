package repository

import (
	"context"
	"database/sql"

	"github.com/quotahub/saas-auth-api/internal/model"
)

// SubscriptionRepo records plan changes in the 'subscriptions' table. The
// rows are an audit trail; the current plan lives on the user row.
type SubscriptionRepo struct{ DB *sql.DB }

func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{DB: db} }

// Record cancels any active subscription rows for the user and appends one
// active row for the new plan.
func (r *SubscriptionRepo) Record(ctx context.Context, userID uint64, plan string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE subscriptions SET status='canceled' WHERE user_id=? AND status='active'", userID)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO subscriptions (user_id, plan, status) VALUES (?,?,'active')", userID, plan)
	return err
}

// Current returns the user's active subscription row, or sql.ErrNoRows.
func (r *SubscriptionRepo) Current(ctx context.Context, userID uint64) (model.Subscription, error) {
	var s model.Subscription
	err := r.DB.QueryRowContext(ctx, `
        SELECT id, user_id, plan, status, created_at FROM subscriptions
        WHERE user_id=? AND status='active' ORDER BY id DESC LIMIT 1`, userID).
		Scan(&s.ID, &s.UserID, &s.Plan, &s.Status, &s.CreatedAt)
	return s, err
}
