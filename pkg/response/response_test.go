package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callmate-backend/internal/domain"
)

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"call not found", domain.ErrCallNotFound, http.StatusNotFound, "Call not found"},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound, "User not found"},
		{"call ended", domain.ErrCallEnded, http.StatusBadRequest, "This call has ended"},
		{"not authorized", domain.ErrNotAuthorized, http.StatusForbidden, "Not authorized"},
		{"email exists", domain.ErrEmailExists, http.StatusBadRequest, "User already exists with this email"},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"validation failure", domain.ErrValidation, http.StatusBadRequest, "Validation failed"},
		{"wrapped validation failure", fmt.Errorf("%w: password too long", domain.ErrValidation), http.StatusBadRequest, "Validation failed"},
		{"unknown error", errors.New("pool exhausted"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, w := newTestContext()

			FromError(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantMsg, decodeBody(t, w).Message)
		})
	}
}

func TestFromError_WrappedError(t *testing.T) {
	c, w := newTestContext()

	FromError(c, errors.New("repo: "+domain.ErrCallNotFound.Error()))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	c, w = newTestContext()
	wrapped := errors.Join(errors.New("lookup failed"), domain.ErrCallNotFound)
	FromError(c, wrapped)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFromError_NeverLeaksInternalDetail(t *testing.T) {
	c, w := newTestContext()

	FromError(c, errors.New("pq: connection refused at 10.0.0.3:5432"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.3")
}

func TestJSON(t *testing.T) {
	c, w := newTestContext()

	JSON(c, http.StatusCreated, gin.H{"ok": true})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}
