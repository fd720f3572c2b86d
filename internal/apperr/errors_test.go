package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("no company with the id of %d", 7)))
	assert.Equal(t, KindQuotaExceeded, KindOf(fmt.Errorf("wrapped: %w", QuotaExceeded("limit"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestInternalUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("list bookings", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, Is(err, KindInternal))
	assert.False(t, Is(nil, KindInternal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:      http.StatusNotFound,
		KindValidation:    http.StatusBadRequest,
		KindUnauthorized:  http.StatusUnauthorized,
		KindForbidden:     http.StatusForbidden,
		KindQuotaExceeded: http.StatusBadRequest,
		KindConflict:      http.StatusConflict,
		KindInternal:      http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, HTTPStatus(k), string(k))
	}
}
