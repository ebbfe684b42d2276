package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/quotahub/saas-auth-api/internal/handler"
	"github.com/quotahub/saas-auth-api/internal/middleware"
	"github.com/quotahub/saas-auth-api/internal/model"
)

// RegisterPublic registers routes that never require authentication: the
// service banner, the health check and the plan catalog. The cache
// middleware (a passthrough when Redis is absent) wraps the catalog.
func RegisterPublic(e *echo.Echo, b *handler.BillingHandler, cache echo.MiddlewareFunc) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
	e.GET("/v1/billing/plans", b.Plans, cache)
}

// RegisterAuth registers the token lifecycle endpoints. Register, login and
// refresh are reachable without a session; /v1/me requires one.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	e.GET("/v1/me", a.Me, middleware.RequireAuth())
}

// RegisterUsers registers the authenticated self-service endpoints. All of
// them pass through the gate first, so they are admission-checked and
// metered before the handler runs.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, b *handler.BillingHandler) {
	g := e.Group("/v1", middleware.RequireAuth())
	g.GET("/protected", handler.Protected)
	g.GET("/users/profile", u.Profile)
	g.GET("/users/usage", u.Usage)
	g.POST("/billing/change-plan", b.ChangePlan)
}

// RegisterAdmin registers the management and reporting endpoints, limited
// to the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	g := e.Group("/v1/admin", middleware.RequireAuth(), middleware.RequireRole(model.RoleAdmin))
	g.GET("/users", a.ListUsers)
	g.GET("/users/:id", a.GetUser)
	g.PUT("/users/:id/suspend", a.SuspendUser)
	g.PUT("/users/:id/role", a.UpdateRole)
	g.GET("/usage", a.UsageStats)
	g.GET("/stats", a.SystemStats)
}
