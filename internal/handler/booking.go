package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/middleware"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/service"
)

// BookingHandler serves /bookings and /companies/:companyId/bookings.
type BookingHandler struct {
	svc   *service.BookingService
	cache *middleware.CacheInvalidator
	log   *zap.Logger
}

func NewBookingHandler(svc *service.BookingService, cache *middleware.CacheInvalidator, log *zap.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, cache: cache, log: log}
}

func caller(c echo.Context) (model.Identity, error) {
	id, found := middleware.IdentityFrom(c)
	if !found {
		return model.Identity{}, apperr.Unauthorized("Not authorized to access this route")
	}
	return id, nil
}

// List returns the caller's bookings, or all bookings for admins. Under
// /companies/:companyId admins only see that company's bookings.
//
//	@Summary	List bookings
//	@Tags		bookings
//	@Produce	json
//	@Success	200	{object}	envelope{data=[]model.BookingView}
//	@Failure	401	{object}	envelope
//	@Security	BearerAuth
//	@Router		/bookings [get]
//	@Router		/companies/{companyId}/bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	var companyID uint64
	if c.Param("companyId") != "" {
		if companyID, err = pathID(c, "companyId", "company"); err != nil {
			return respondError(c, h.log, err)
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.svc.List(ctx, id, companyID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return okList(c, out, len(out), nil)
}

// Get godoc
//
//	@Summary	Get a booking
//	@Tags		bookings
//	@Produce	json
//	@Param		id	path		int	true	"Booking id"
//	@Success	200	{object}	envelope{data=model.BookingView}
//	@Failure	404	{object}	envelope
//	@Router		/bookings/{id} [get]
func (h *BookingHandler) Get(c echo.Context) error {
	bookingID, err := pathID(c, "id", "booking")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	v, err := h.svc.Get(ctx, bookingID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, v)
}

// Create handles POST /companies/:companyId/bookings. The booking always
// belongs to the caller.
//
//	@Summary	Book an appointment
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		companyId	path		int					true	"Company id"
//	@Param		request		body		model.BookingInput	true	"Booking date"
//	@Success	201			{object}	envelope{data=model.Booking}
//	@Failure	400			{object}	envelope
//	@Failure	404			{object}	envelope
//	@Security	BearerAuth
//	@Router		/companies/{companyId}/bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	companyID, err := pathID(c, "companyId", "company")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in model.BookingInput
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Create(ctx, id, companyID, model.BookingInput{BookDate: in.BookDate})
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusCreated, b)
}

// Update godoc
//
//	@Summary	Update a booking
//	@Tags		bookings
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"Booking id"
//	@Param		request	body		model.BookingInput	true	"New date and/or company"
//	@Success	200		{object}	envelope{data=model.Booking}
//	@Failure	400		{object}	envelope
//	@Failure	403		{object}	envelope
//	@Failure	404		{object}	envelope
//	@Security	BearerAuth
//	@Router		/bookings/{id} [put]
func (h *BookingHandler) Update(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	bookingID, err := pathID(c, "id", "booking")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var in model.BookingInput
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.svc.Update(ctx, id, bookingID, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusOK, b)
}

// Delete godoc
//
//	@Summary	Delete a booking
//	@Tags		bookings
//	@Produce	json
//	@Param		id	path		int	true	"Booking id"
//	@Success	200	{object}	envelope
//	@Failure	403	{object}	envelope
//	@Failure	404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/bookings/{id} [delete]
func (h *BookingHandler) Delete(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return respondError(c, h.log, err)
	}
	bookingID, err := pathID(c, "id", "booking")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.Delete(ctx, id, bookingID); err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusOK, struct{}{})
}
