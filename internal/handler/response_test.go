package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/vaccination-booking/internal/apperr"
	"github.com/iliyamo/vaccination-booking/internal/query"
)

func newCtx(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", apperr.NotFound("No company with the id of %d", 3), http.StatusNotFound,
			`{"success":false,"message":"No company with the id of 3"}`},
		{"quota", apperr.QuotaExceeded("too many"), http.StatusBadRequest,
			`{"success":false,"message":"too many"}`},
		{"conflict", apperr.Conflict("taken"), http.StatusConflict,
			`{"success":false,"message":"taken"}`},
		{"query", &query.Error{Param: "limit[gt]", Reason: "unknown field"}, http.StatusBadRequest,
			`{"success":false,"message":"invalid query parameter \"limit[gt]\": unknown field","errors":{"limit[gt]":"unknown field"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newCtx(http.MethodGet, "/")
			require.NoError(t, respondError(c, zap.NewNop(), tt.err))
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	c, rec := newCtx(http.MethodGet, "/companies")
	c.Response().Header().Set(echo.HeaderXRequestID, "req-1")

	require.NoError(t, respondError(c, zap.New(core), errors.New("dial tcp: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"internal server error"}`, rec.Body.String())

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Contains(t, fields["error"], "connection refused")
}

func TestPathID(t *testing.T) {
	c, _ := newCtx(http.MethodGet, "/")
	c.SetParamNames("id")
	c.SetParamValues("12")
	id, err := pathID(c, "id", "booking")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	c.SetParamValues("x1")
	_, err = pathID(c, "id", "booking")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.EqualError(t, err, "NOT_FOUND: No booking with the id of x1")
}
