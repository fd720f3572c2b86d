package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole lets the request through only when the caller resolved by
// JWTAuth has one of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			}
			if !allowed[id.Role] {
				return fail(c, http.StatusForbidden, fmt.Sprintf("User role %s is not authorized to access this route", id.Role))
			}
			return next(c)
		}
	}
}
