package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vaccination-booking/internal/handler"
	"github.com/iliyamo/vaccination-booking/internal/middleware"
)

// RegisterBookings registers /bookings and the booking routes nested under
// a company. Everything except reading a single booking needs a token;
// ownership is checked by the booking service.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	auth := middleware.JWTAuth(jwtSecret)

	g := e.Group(APIPrefix + "/bookings")
	g.GET("", h.List, auth)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, auth)
	g.DELETE("/:id", h.Delete, auth)

	nested := e.Group(APIPrefix + "/companies/:companyId/bookings")
	nested.GET("", h.List, auth)
	nested.POST("", h.Create, auth)
}
