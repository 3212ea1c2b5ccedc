package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf_WrappedErrors(t *testing.T) {
	base := NewNotFound("order", int64(7))
	wrapped := fmt.Errorf("load order: %w", base)

	assert.Equal(t, CodeNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(wrapped))

	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestAppError_DetailsAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause).WithDetail("entity", "invoice")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invoice", err.Details["entity"])
	assert.Contains(t, err.Error(), "connection reset")
}

func TestFactories_Statuses(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{NewInvalidInput("bad"), http.StatusBadRequest},
		{NewForbidden("no"), http.StatusForbidden},
		{NewUnauthorized("who"), http.StatusUnauthorized},
		{NewConflict("twice"), http.StatusConflict},
		{NewDuplicate("invoice", "order_id", 1), http.StatusConflict},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus, tc.err.Code)
	}
	assert.True(t, IsConflict(NewDuplicate("invoice", "order_id", 1)))
}
