// Package router registers the HTTP routes of the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/iliyamo/vaccination-booking/docs"
	"github.com/iliyamo/vaccination-booking/internal/handler"
	"github.com/iliyamo/vaccination-booking/internal/middleware"
)

// APIPrefix is the prefix of every versioned route.
const APIPrefix = "/api/v1"

// RegisterRoutes registers the routes that sit outside the API version: the
// health check, the API docs at /api-docs and, when metrics is non-nil,
// /metrics.
func RegisterRoutes(e *echo.Echo, metrics *middleware.Metrics) {
	e.GET("/healthz", handler.Health)
	e.GET("/api-docs", func(c echo.Context) error {
		return c.Redirect(http.StatusMovedPermanently, "/api-docs/index.html")
	})
	e.GET("/api-docs/*", echoSwagger.WrapHandler)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}
}

// RegisterAuth registers the account endpoints. Register, login, refresh and
// logout need no access token; logout accepts one to revoke every session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group(APIPrefix + "/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)

	logout := middleware.OptionalJWT(jwtSecret)
	g.GET("/logout", a.Logout, logout)
	g.POST("/logout", a.Logout, logout)

	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
