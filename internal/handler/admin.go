package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quotahub/saas-auth-api/internal/model"
	"github.com/quotahub/saas-auth-api/internal/repository"
	"github.com/quotahub/saas-auth-api/internal/usage"
)

// AdminHandler serves the ADMIN-only management and reporting endpoints.
type AdminHandler struct {
	Users    *repository.UserRepo
	Usage    *repository.UsageRepo
	Recorder *usage.Recorder
}

func NewAdminHandler(users *repository.UserRepo, ur *repository.UsageRepo, rec *usage.Recorder) *AdminHandler {
	return &AdminHandler{Users: users, Usage: ur, Recorder: rec}
}

type adminUserResp struct {
	ID               uint64    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	IsActive         bool      `json:"is_active"`
	SubscriptionPlan string    `json:"subscription_plan"`
	CreatedAt        time.Time `json:"created_at"`
}

func toAdminUser(u model.User) adminUserResp {
	return adminUserResp{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		Role:             u.Role,
		IsActive:         u.IsActive,
		SubscriptionPlan: u.SubscriptionPlan,
		CreatedAt:        u.CreatedAt,
	}
}

func paging(c echo.Context) (skip, limit int) {
	skip, _ = strconv.Atoi(c.QueryParam("skip"))
	if skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 100
	}
	return skip, limit
}

func (h *AdminHandler) userByParam(ctx context.Context, c echo.Context) (model.User, bool, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return model.User{}, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, false, c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return model.User{}, false, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return u, true, nil
}

// ListUsers returns a page of users ordered by id.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	skip, limit := paging(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

// GetUser returns a single user by id.
func (h *AdminHandler) GetUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, ok, errResp := h.userByParam(ctx, c)
	if !ok {
		return errResp
	}
	return c.JSON(http.StatusOK, toAdminUser(u))
}

// SuspendUser toggles the target's is_active flag. A suspended user keeps
// their data but cannot authenticate.
func (h *AdminHandler) SuspendUser(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, ok, errResp := h.userByParam(ctx, c)
	if !ok {
		return errResp
	}
	if err := h.Users.SetActive(ctx, u.ID, !u.IsActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	status := "suspended"
	if !u.IsActive {
		status = "activated"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user " + u.Username + " " + status + " successfully"})
}

type roleReq struct {
	Role string `json:"role"`
}

// UpdateRole sets the target's role. The change takes effect on the
// target's next request because authorization reads the user row, not the
// token.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleUser && role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be USER or ADMIN"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, ok, errResp := h.userByParam(ctx, c)
	if !ok {
		return errResp
	}
	if err := h.Users.SetRole(ctx, u.ID, role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user " + u.Username + " role updated to " + role})
}

type userUsageResp struct {
	UserID            uint64     `json:"user_id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	SubscriptionPlan  string     `json:"subscription_plan"`
	TotalRequests     int        `json:"total_requests"`
	RequestsThisMonth int        `json:"requests_this_month"`
	LastRequest       *time.Time `json:"last_request"`
}

// UsageStats returns per-user usage rows for a page of users.
func (h *AdminHandler) UsageStats(c echo.Context) error {
	skip, limit := paging(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	out := make([]userUsageResp, 0, len(users))
	for _, u := range users {
		stats, err := h.Recorder.UserStats(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "usage query failed"})
		}
		row := userUsageResp{
			UserID:            u.ID,
			Username:          u.Username,
			Email:             u.Email,
			SubscriptionPlan:  u.SubscriptionPlan,
			TotalRequests:     stats.TotalRequests,
			RequestsThisMonth: stats.RequestsThisMonth,
		}
		if last, ok, err := h.Usage.LastRequestAt(ctx, u.ID); err == nil && ok {
			row.LastRequest = &last
		}
		out = append(out, row)
	}
	return c.JSON(http.StatusOK, out)
}

type systemStatsResp struct {
	TotalUsers             int `json:"total_users"`
	ActiveUsers            int `json:"active_users"`
	TotalRequestsToday     int `json:"total_requests_today"`
	TotalRequestsThisMonth int `json:"total_requests_this_month"`
	FreePlanUsers          int `json:"free_plan_users"`
	ProPlanUsers           int `json:"pro_plan_users"`
}

// SystemStats returns the system-wide aggregates for the admin dashboard.
func (h *AdminHandler) SystemStats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Users.CountUsers(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	now := time.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	today, err := h.Usage.CountSince(ctx, todayStart)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	month, err := h.Usage.CountSince(ctx, monthStart)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	return c.JSON(http.StatusOK, systemStatsResp{
		TotalUsers:             counts.Total,
		ActiveUsers:            counts.Active,
		TotalRequestsToday:     today,
		TotalRequestsThisMonth: month,
		FreePlanUsers:          counts.Free,
		ProPlanUsers:           counts.Pro,
	})
}
