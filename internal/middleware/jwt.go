// Package middleware provides the echo middleware shared by the routes:
// authentication, role gates, rate limiting, response caching, request
// logging and metrics.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vaccination-booking/internal/utils"
)

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// JWTAuth rejects requests without a valid Bearer access token and stores
// the caller's identity for IdentityFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			}
			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return fail(c, http.StatusUnauthorized, "Not authorized to access this route")
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// OptionalJWT resolves the caller when a valid token is present and lets
// the request through either way.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if id, err := utils.ParseAccessToken(secret, raw); err == nil {
					SetIdentity(c, id)
				}
			}
			return next(c)
		}
	}
}
