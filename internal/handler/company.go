package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/middleware"
	"github.com/iliyamo/vaccination-booking/internal/model"
	"github.com/iliyamo/vaccination-booking/internal/repository"
	"github.com/iliyamo/vaccination-booking/internal/service"
)

// CompanyHandler serves /companies.
type CompanyHandler struct {
	svc   *service.CompanyService
	cache *middleware.CacheInvalidator
	log   *zap.Logger
}

func NewCompanyHandler(svc *service.CompanyService, cache *middleware.CacheInvalidator, log *zap.Logger) *CompanyHandler {
	return &CompanyHandler{svc: svc, cache: cache, log: log}
}

// List handles GET /companies with filters, select, sort and pagination.
//
//	@Summary		List companies
//	@Description	Filters use field=value or field[op]=value with op one of gt, gte, lt, lte, in. Each company carries its bookings.
//	@Tags			companies
//	@Produce		json
//	@Param			select	query		string	false	"Comma separated fields to return"
//	@Param			sort	query		string	false	"Comma separated sort fields, prefix - for descending"	default(-createdAt)
//	@Param			page	query		int		false	"Page number"											default(1)
//	@Param			limit	query		int		false	"Page size, at most 100"								default(25)
//	@Success		200		{object}	envelope{data=[]model.Company}
//	@Failure		400		{object}	envelope
//	@Router			/companies [get]
func (h *CompanyHandler) List(c echo.Context) error {
	q, err := repository.CompanySchema.Parse(c.QueryParams())
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	page, err := h.svc.List(ctx, q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	out := make([]map[string]any, 0, len(page.Items))
	for _, co := range page.Items {
		out = append(out, co.Project(q.Selected))
	}
	return okList(c, out, len(out), &page.Pagination)
}

// Get godoc
//
//	@Summary	Get a company
//	@Tags		companies
//	@Produce	json
//	@Param		id	path		int	true	"Company id"
//	@Success	200	{object}	envelope{data=model.Company}
//	@Failure	404	{object}	envelope
//	@Router		/companies/{id} [get]
func (h *CompanyHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id", "company")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	co, err := h.svc.Get(ctx, id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return ok(c, http.StatusOK, co)
}

// Create godoc
//
//	@Summary	Create a company
//	@Tags		companies
//	@Accept		json
//	@Produce	json
//	@Param		request	body		model.Company	true	"Company"
//	@Success	201		{object}	envelope{data=model.Company}
//	@Failure	400		{object}	envelope
//	@Failure	401		{object}	envelope
//	@Failure	403		{object}	envelope
//	@Failure	409		{object}	envelope
//	@Security	BearerAuth
//	@Router		/companies [post]
func (h *CompanyHandler) Create(c echo.Context) error {
	var in model.Company
	if err := bindBody(c, &in); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	co, err := h.svc.Create(ctx, in)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusCreated, co)
}

// Update godoc
//
//	@Summary	Update a company
//	@Tags		companies
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"Company id"
//	@Param		request	body		model.CompanyPatch	true	"Fields to change"
//	@Success	200		{object}	envelope{data=model.Company}
//	@Failure	400		{object}	envelope
//	@Failure	404		{object}	envelope
//	@Failure	409		{object}	envelope
//	@Security	BearerAuth
//	@Router		/companies/{id} [put]
func (h *CompanyHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id", "company")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var patch model.CompanyPatch
	if err := bindBody(c, &patch); err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	co, err := h.svc.Update(ctx, id, patch)
	if err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusOK, co)
}

// Delete removes the company together with its bookings.
//
//	@Summary	Delete a company and its bookings
//	@Tags		companies
//	@Produce	json
//	@Param		id	path		int	true	"Company id"
//	@Success	200	{object}	envelope
//	@Failure	404	{object}	envelope
//	@Security	BearerAuth
//	@Router		/companies/{id} [delete]
func (h *CompanyHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id", "company")
	if err != nil {
		return respondError(c, h.log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.svc.Delete(ctx, id); err != nil {
		return respondError(c, h.log, err)
	}
	h.cache.Invalidate(ctx)
	return ok(c, http.StatusOK, struct{}{})
}
