package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quotahub/saas-auth-api/internal/auth"
	"github.com/quotahub/saas-auth-api/internal/model"
	"github.com/quotahub/saas-auth-api/internal/quota"
)

// userContextKey is where the gate stores the resolved model.User.
const userContextKey = "current_user"

// UserResolver looks up the account named by a verified token subject.
type UserResolver interface {
	GetByUsername(ctx context.Context, username string) (model.User, error)
}

// AdmissionChecker decides whether one more request is admitted for the
// user. quota.Limiter implements it.
type AdmissionChecker interface {
	Check(ctx context.Context, userID uint64) error
}

// Metering appends one usage event per completed authenticated request.
// usage.Recorder implements it.
type Metering interface {
	Record(ctx context.Context, userID uint64, endpoint, method string, statusCode int, responseTimeMS *float64) (model.UsageLog, error)
}

// Gate is the per-request orchestration middleware, applied to every
// route: token extraction, rate-limit admission, handler dispatch, usage
// recording.
//
// Credential handling is fail-open by design: a missing Authorization
// header, a header that does not parse as "Bearer <token>", a token that
// fails verification, or a subject with no matching account all make the
// request proceed unauthenticated. Endpoints that require authentication
// reject such requests separately via RequireAuth. Changing this would
// change observable behavior for every public endpoint.
//
// Only authenticated requests are admission-checked and metered.
// X-Process-Time is attached to every response regardless.
func Gate(secret string, users UserResolver, limiter AdmissionChecker, meter Metering) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			ctx := c.Request().Context()

			// Headers must be in place before the first body write.
			c.Response().Before(func() {
				elapsed := time.Since(start).Seconds()
				c.Response().Header().Set("X-Process-Time", strconv.FormatFloat(elapsed, 'f', 6, 64))
			})

			var user *model.User
			header := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				raw := strings.TrimPrefix(header, "Bearer ")
				if claims, err := auth.VerifyToken(secret, raw, auth.TypeAccess); err == nil {
					if u, err := users.GetByUsername(ctx, claims.Subject); err == nil {
						user = &u
						c.Set(userContextKey, u)
					}
				}
			}

			if user != nil && limiter != nil {
				if err := limiter.Check(ctx, user.ID); err != nil {
					return rejectAdmission(c, err)
				}
			}

			err := next(c)

			if user != nil && meter != nil {
				status := c.Response().Status
				if err != nil {
					status = http.StatusInternalServerError
					var he *echo.HTTPError
					if errors.As(err, &he) {
						status = he.Code
					}
				}
				ms := float64(time.Since(start)) / float64(time.Millisecond)
				_, _ = meter.Record(ctx, user.ID, c.Request().URL.Path, c.Request().Method, status, &ms)
			}

			return err
		}
	}
}

// rejectAdmission maps limiter errors onto their HTTP status classes: 429
// means "slow down", 403 means "upgrade plan" and 404 means the identity
// behind the token no longer exists. Rejected requests bypass the handler
// and are not metered.
func rejectAdmission(c echo.Context, err error) error {
	switch {
	case errors.Is(err, quota.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	case errors.Is(err, quota.ErrQuotaExceeded):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, quota.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rate limit check failed"})
	}
}

// CurrentUser returns the authenticated user the gate stored in context.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}
