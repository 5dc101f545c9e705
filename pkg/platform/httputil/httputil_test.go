package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "homeroom/pkg/domain-errors"
)

func TestWriteError_DomainCodeMapping(t *testing.T) {
	cases := []struct {
		name       string
		code       dErrors.Code
		wantStatus int
		wantError  string
	}{
		{"not found", dErrors.CodeNotFound, http.StatusNotFound, "not_found"},
		{"duplicate identity", dErrors.CodeDuplicateIdentity, http.StatusConflict, "duplicate_identity"},
		{"already accepted", dErrors.CodeAlreadyAccepted, http.StatusConflict, "already_accepted"},
		{"concurrent modification", dErrors.CodeConcurrentModification, http.StatusConflict, "concurrent_modification"},
		{"invalid or expired code", dErrors.CodeInvalidOrExpiredCode, http.StatusUnprocessableEntity, "invalid_or_expired_code"},
		{"code space exhausted", dErrors.CodeCodeSpaceExhausted, http.StatusInternalServerError, "code_space_exhausted"},
		{"store unavailable", dErrors.CodeUnavailable, http.StatusServiceUnavailable, "store_unavailable"},
		{"timeout", dErrors.CodeTimeout, http.StatusGatewayTimeout, "timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(tc.code, "boom"))

			assert.Equal(t, tc.wantStatus, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantError, resp["error"])
			assert.Equal(t, "boom", resp["error_description"])
		})
	}
}

func TestWriteError_NonDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("plumbing broke"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal_error", resp["error"])
	// Internal details must not leak to clients.
	assert.NotContains(t, resp, "error_description")
}

func TestWriteError_FindsWrappedDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	inner := dErrors.New(dErrors.CodeInvalidOrExpiredCode, "code expired")
	WriteError(w, dErrors.Wrap(inner, dErrors.CodeInternal, "verify failed"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
