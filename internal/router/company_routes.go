package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vaccination-booking/internal/handler"
	"github.com/iliyamo/vaccination-booking/internal/middleware"
	"github.com/iliyamo/vaccination-booking/internal/model"
)

// RegisterCompanies registers /companies. Reads are public and go through
// cache; writes need an admin token.
func RegisterCompanies(e *echo.Echo, h *handler.CompanyHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group(APIPrefix + "/companies")
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	g.GET("", h.List, cache)
	g.GET("/:id", h.Get, cache)

	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	}
	g.POST("", h.Create, admin...)
	g.PUT("/:id", h.Update, admin...)
	g.DELETE("/:id", h.Delete, admin...)
}
