package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusAndCode(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{Unauthorized("no token"), http.StatusUnauthorized, CodeAuthenticationRequired},
		{Forbidden("nope"), http.StatusForbidden, CodeForbidden},
		{NotFound("lead not found"), http.StatusNotFound, CodeNotFound},
		{Validation("name is required"), http.StatusBadRequest, CodeValidationFailed},
		{BadRequest("bad"), http.StatusBadRequest, CodeValidationFailed},
		{InvalidTransition("New", "Qualified"), http.StatusBadRequest, CodeInvalidTransition},
		{Conflict("in use"), http.StatusConflict, CodeConflict},
		{Internal("boom"), http.StatusInternalServerError, CodeStorageError},
		{New(KindUnknown, "?"), http.StatusInternalServerError, CodeStorageError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.HTTPStatus(), tc.err.Message)
		assert.Equal(t, tc.code, tc.err.Code(), tc.err.Message)
	}
}

func TestInvalidTransitionNamesBothStates(t *testing.T) {
	err := InvalidTransition("New", "Qualified")
	assert.Contains(t, err.Error(), `"New"`)
	assert.Contains(t, err.Error(), `"Qualified"`)
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	wrapped := fmt.Errorf("change state: %w", Conflict("state in use"))
	assert.Equal(t, KindConflict, GetKind(wrapped))
	assert.True(t, Is(wrapped, KindConflict))
	assert.Equal(t, KindUnknown, GetKind(fmt.Errorf("plain")))
}
