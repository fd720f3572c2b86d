// Package handler exposes the HTTP API. Every response uses the envelope
// {success, data, count, pagination, message}.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/query"
)

// requestTimeout bounds the store calls of a single request.
const requestTimeout = 5 * time.Second

type envelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Count      *int              `json:"count,omitempty"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
	Message    string            `json:"message,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func ok(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Success: true, Data: data})
}

func okList(c echo.Context, data any, count int, p *query.Pagination) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data, Count: &count, Pagination: p})
}

// respondError writes err as an error envelope. Internal errors are logged
// with their cause and reported generically.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var qerr *query.Error
	if errors.As(err, &qerr) {
		err = apperr.ValidationFields(qerr.Error(), map[string]string{qerr.Param: qerr.Reason})
	}

	var ae *apperr.AppError
	if !errors.As(err, &ae) {
		ae = apperr.Internal("unexpected error", err)
	}
	body := envelope{Success: false, Message: ae.Message, Errors: ae.Fields}
	if ae.Kind == apperr.KindInternal {
		log.Error("request failed",
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("reason", ae.Message),
			zap.Error(ae.Err))
		body = envelope{Success: false, Message: "internal server error"}
	}
	return c.JSON(apperr.HTTPStatus(ae.Kind), body)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// pathID parses a numeric path parameter. Anything else is reported as a
// missing resource of kind what.
func pathID(c echo.Context, name, what string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound("No %s with the id of %s", what, raw)
	}
	return id, nil
}

func bindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
