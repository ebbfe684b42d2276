// Package limits maps subscription plans to their rate limits. The mapping
// is a pure function; limits are derived on every check and never stored as
// the source of truth (the rate_limits table only caches them for reports).
package limits

import "github.com/quotahub/saas-auth-api/internal/model"

// PlanLimits holds the two quota windows for a plan: how many requests are
// admitted per rolling 60-second window and per 30-day window.
type PlanLimits struct {
	RequestsPerMinute int
	MonthlyQuota      int
}

// ForPlan returns the limits for a subscription plan. Unknown plan values
// fall back to FREE, the most restrictive tier.
func ForPlan(plan string) PlanLimits {
	if plan == model.PlanPro {
		return PlanLimits{RequestsPerMinute: 300, MonthlyQuota: 10000}
	}
	return PlanLimits{RequestsPerMinute: 60, MonthlyQuota: 1000}
}
