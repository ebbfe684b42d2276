package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quotahub/saas-auth-api/internal/limits"
	"github.com/quotahub/saas-auth-api/internal/middleware"
	"github.com/quotahub/saas-auth-api/internal/model"
	"github.com/quotahub/saas-auth-api/internal/repository"
)

// BillingHandler serves the plan catalog and plan changes. Payment-provider
// integration is out of scope; a plan change here switches the tier
// directly and records the change for auditing.
type BillingHandler struct {
	Users      *repository.UserRepo
	RateLimits *repository.RateLimitRepo
	Subs       *repository.SubscriptionRepo
}

func NewBillingHandler(users *repository.UserRepo, rl *repository.RateLimitRepo, subs *repository.SubscriptionRepo) *BillingHandler {
	return &BillingHandler{Users: users, RateLimits: rl, Subs: subs}
}

type planResp struct {
	Name              string `json:"name"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	MonthlyQuota      int    `json:"monthly_quota"`
}

// Plans returns the public plan catalog. The response is cached by the
// Redis response cache when available.
func (h *BillingHandler) Plans(c echo.Context) error {
	plans := make([]planResp, 0, 2)
	for _, name := range []string{model.PlanFree, model.PlanPro} {
		l := limits.ForPlan(name)
		plans = append(plans, planResp{
			Name:              name,
			RequestsPerMinute: l.RequestsPerMinute,
			MonthlyQuota:      l.MonthlyQuota,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"plans": plans})
}

type changePlanReq struct {
	Plan string `json:"plan"`
}

// ChangePlan switches the caller between FREE and PRO. The cached limits on
// the monthly record are refreshed immediately so reports reflect the new
// tier, and a subscription row is appended as the audit trail. The usage
// counter itself is not reset; the new quota applies to the current window.
func (h *BillingHandler) ChangePlan(c echo.Context) error {
	var req changePlanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	plan := strings.ToUpper(strings.TrimSpace(req.Plan))
	if plan != model.PlanFree && plan != model.PlanPro {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan must be FREE or PRO"})
	}

	u, _ := middleware.CurrentUser(c)
	if u.SubscriptionPlan == plan {
		return c.JSON(http.StatusOK, echo.Map{"message": "already on plan " + plan})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetPlan(ctx, u.ID, plan); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if err := h.RateLimits.RefreshLimits(ctx, u.ID, limits.ForPlan(plan)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh limits failed"})
	}
	if err := h.Subs.Record(ctx, u.ID, plan); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record subscription failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "plan changed to " + plan})
}
