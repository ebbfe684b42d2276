package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quotahub/saas-auth-api/internal/middleware"
	"github.com/quotahub/saas-auth-api/internal/usage"
)

// UserHandler serves the authenticated user's own profile and usage views.
type UserHandler struct {
	Recorder *usage.Recorder
}

func NewUserHandler(rec *usage.Recorder) *UserHandler { return &UserHandler{Recorder: rec} }

type profileResp struct {
	ID               uint64 `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	IsActive         bool   `json:"is_active"`
	SubscriptionPlan string `json:"subscription_plan"`
}

// Profile returns the caller's account as resolved by the gate this
// request, so admin-side changes are visible immediately.
func (h *UserHandler) Profile(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, profileResp{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		IsActive:         u.IsActive,
		SubscriptionPlan: u.SubscriptionPlan,
	})
}

// Usage returns the caller's usage summary.
func (h *UserHandler) Usage(c echo.Context) error {
	u, _ := middleware.CurrentUser(c)
	stats, err := h.Recorder.UserStats(c.Request().Context(), u.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage query failed"})
	}
	return c.JSON(http.StatusOK, stats)
}

// Protected is a sample authenticated endpoint; every call through it is
// admission-checked and metered by the gate like any other.
func Protected(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "this is a protected endpoint"})
}
