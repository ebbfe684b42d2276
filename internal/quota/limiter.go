package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/quotahub/saas-auth-api/internal/limits"
	"github.com/quotahub/saas-auth-api/internal/model"
)

// Sentinel errors surfaced by Check. Handlers translate them into HTTP
// statuses: 429, 403 and 404 respectively.
var (
	ErrRateLimited   = errors.New("rate limit exceeded: too many requests per minute")
	ErrQuotaExceeded = errors.New("monthly quota exceeded: please upgrade your plan")
	ErrUserNotFound  = errors.New("user not found")
)

const minuteWindow = 60 * time.Second

// UserFinder resolves an identity for the admission check.
type UserFinder interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// MonthlyStore owns the durable monthly usage record. Consume must ensure
// the record exists (creating it with the given cached limits), apply the
// lazy 30-day reset, and then atomically increment usage only while it is
// below the quota, reporting whether the increment happened. Concurrent
// callers for the same user must not be able to both pass at usage ==
// quota-1 and push the counter over quota.
type MonthlyStore interface {
	Consume(ctx context.Context, userID uint64, l limits.PlanLimits) (bool, error)
}

// Limiter makes the admit-or-reject decision for one request. Every
// admitted Check consumes one unit of both the minute window and the
// monthly quota; that consumption is the usage metering itself, so Check is
// deliberately not idempotent.
type Limiter struct {
	users    UserFinder
	counters Store // nil disables the minute window
	monthly  MonthlyStore
}

func NewLimiter(users UserFinder, counters Store, monthly MonthlyStore) *Limiter {
	return &Limiter{users: users, counters: counters, monthly: monthly}
}

// Check admits or rejects one request for the given user. Order matters:
// the identity is resolved first (404 for unknown users), then the minute
// window, then the monthly quota, so a request rejected per-minute does not
// burn monthly quota.
//
// When the counter store is absent (Redis unreachable at startup) the
// minute window is skipped and only the monthly quota is enforced.
func (l *Limiter) Check(ctx context.Context, userID uint64) error {
	user, err := l.users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		// Only an absent row is a not-found; anything else (lost
		// connection, deadline) propagates as a server-side failure.
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	pl := limits.ForPlan(user.SubscriptionPlan)

	if l.counters != nil {
		admitted, err := l.counters.ConsumeWindow(ctx, MinuteKey(userID), int64(pl.RequestsPerMinute), minuteWindow)
		if err != nil {
			return err
		}
		if !admitted {
			return ErrRateLimited
		}
	}

	admitted, err := l.monthly.Consume(ctx, userID, pl)
	if err != nil {
		return err
	}
	if !admitted {
		return ErrQuotaExceeded
	}
	return nil
}
