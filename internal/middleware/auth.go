package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAuth rejects requests the gate could not authenticate. The 401
// message is the same undifferentiated one the token service uses, so a
// missing header, an expired token and a tampered token are
// indistinguishable to the caller. Suspended accounts authenticate but may
// not act.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
			}
			if !u.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
			}
			return next(c)
		}
	}
}

// RequireRole enforces that the authenticated user holds one of the given
// roles. It assumes RequireAuth already ran; a request without a user is
// rejected the same way. Role values are compared against users.role as
// resolved this request, so an admin role change takes effect on the
// target's next call.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient role"})
			}
			return next(c)
		}
	}
}
