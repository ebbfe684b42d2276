package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotahub/saas-auth-api/internal/auth"
	"github.com/quotahub/saas-auth-api/internal/model"
	"github.com/quotahub/saas-auth-api/internal/quota"
)

const gateSecret = "gate-test-secret"

type fakeResolver map[string]model.User

func (f fakeResolver) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f[username]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type fakeLimiter struct {
	err   error
	calls int
}

func (f *fakeLimiter) Check(_ context.Context, _ uint64) error {
	f.calls++
	return f.err
}

type recordedCall struct {
	userID   uint64
	endpoint string
	method   string
	status   int
}

type fakeMeter struct {
	calls []recordedCall
}

func (f *fakeMeter) Record(_ context.Context, userID uint64, endpoint, method string, status int, _ *float64) (model.UsageLog, error) {
	f.calls = append(f.calls, recordedCall{userID: userID, endpoint: endpoint, method: method, status: status})
	return model.UsageLog{}, nil
}

func newGateApp(limiter *fakeLimiter, meter *fakeMeter) *echo.Echo {
	users := fakeResolver{
		"alice": {ID: 1, Username: "alice", Role: model.RoleUser, IsActive: true, SubscriptionPlan: model.PlanFree},
		"root":  {ID: 2, Username: "root", Role: model.RoleAdmin, IsActive: true, SubscriptionPlan: model.PlanPro},
		"bob":   {ID: 3, Username: "bob", Role: model.RoleUser, IsActive: false, SubscriptionPlan: model.PlanFree},
	}
	e := echo.New()
	e.Use(Gate(gateSecret, users, limiter, meter))
	e.GET("/public", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	e.GET("/private", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, RequireAuth())
	e.GET("/admin", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	}, RequireAuth(), RequireRole(model.RoleAdmin))
	return e
}

func bearer(t *testing.T, username string) string {
	t.Helper()
	tok, err := auth.NewAccessToken(gateSecret, username, 30*time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Value
}

func doReq(e *echo.Echo, target, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGateUnauthenticatedPublic(t *testing.T) {
	limiter := &fakeLimiter{}
	meter := &fakeMeter{}
	e := newGateApp(limiter, meter)

	rec := doReq(e, "/public", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, limiter.calls, "anonymous requests are not admission-checked")
	assert.Empty(t, meter.calls, "anonymous requests are not metered")
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
}

func TestGateMalformedHeaderFailsOpen(t *testing.T) {
	limiter := &fakeLimiter{}
	meter := &fakeMeter{}
	e := newGateApp(limiter, meter)

	// None of these parse as "Bearer <token>"; all are treated as absent.
	for _, h := range []string{"Token abc", "Bearer", "bearer abc", "abc"} {
		rec := doReq(e, "/public", h)
		assert.Equal(t, http.StatusOK, rec.Code, "header=%q", h)
	}
	assert.Empty(t, meter.calls)
}

func TestGateInvalidTokenAbsorbedOnPublicRoute(t *testing.T) {
	limiter := &fakeLimiter{}
	meter := &fakeMeter{}
	e := newGateApp(limiter, meter)

	rec := doReq(e, "/public", "Bearer not-a-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, meter.calls)
}

func TestGateInvalidTokenFatalOnProtectedRoute(t *testing.T) {
	e := newGateApp(&fakeLimiter{}, &fakeMeter{})

	for _, h := range []string{"", "Bearer not-a-token"} {
		rec := doReq(e, "/private", h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", h)
		assert.Contains(t, rec.Body.String(), "could not validate credentials")
	}
}

func TestGateRefreshTokenRejectedAsAccess(t *testing.T) {
	e := newGateApp(&fakeLimiter{}, &fakeMeter{})

	refresh, err := auth.NewRefreshToken(gateSecret, "alice", 7*24*time.Hour)
	require.NoError(t, err)
	rec := doReq(e, "/private", "Bearer "+refresh.Value)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateAuthenticatedRequestIsMetered(t *testing.T) {
	limiter := &fakeLimiter{}
	meter := &fakeMeter{}
	e := newGateApp(limiter, meter)

	rec := doReq(e, "/private", bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, limiter.calls)
	require.Len(t, meter.calls, 1)
	call := meter.calls[0]
	assert.Equal(t, uint64(1), call.userID)
	assert.Equal(t, "/private", call.endpoint)
	assert.Equal(t, http.MethodGet, call.method)
	assert.Equal(t, http.StatusOK, call.status)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
}

func TestGateAdmissionRejections(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"rate limited", quota.ErrRateLimited, http.StatusTooManyRequests},
		{"quota exceeded", quota.ErrQuotaExceeded, http.StatusForbidden},
		{"user not found", quota.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter := &fakeMeter{}
			e := newGateApp(&fakeLimiter{err: tt.err}, meter)

			rec := doReq(e, "/private", bearer(t, "alice"))
			assert.Equal(t, tt.code, rec.Code)
			assert.Empty(t, meter.calls, "rejected requests are not metered")
			assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))
		})
	}
}

func TestRequireAuthInactiveUser(t *testing.T) {
	e := newGateApp(&fakeLimiter{}, &fakeMeter{})

	rec := doReq(e, "/private", bearer(t, "bob"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "inactive user")
}

func TestRequireRole(t *testing.T) {
	e := newGateApp(&fakeLimiter{}, &fakeMeter{})

	rec := doReq(e, "/admin", bearer(t, "alice"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doReq(e, "/admin", bearer(t, "root"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateUnknownSubjectProceedsAnonymous(t *testing.T) {
	meter := &fakeMeter{}
	e := newGateApp(&fakeLimiter{}, meter)

	// Valid signature, but the account behind the subject is gone.
	rec := doReq(e, "/public", bearer(t, "ghost"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, meter.calls)

	rec = doReq(e, "/private", bearer(t, "ghost"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
