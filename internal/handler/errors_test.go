package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/notes-backend/internal/service"
	"github.com/iliyamo/notes-backend/internal/utils"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		err       error
		status    int
		body      string
		challenge bool
	}{
		{service.ErrInvalidCredentials, http.StatusUnauthorized, `{"detail":"Incorrect username or password"}`, true},
		{fmt.Errorf("%w: %w", service.ErrUnauthenticated, utils.ErrTokenExpired), http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, true},
		{service.ErrAccountDisabled, http.StatusBadRequest, `{"detail":"Inactive user"}`, false},
		{service.ErrUsernameTaken, http.StatusBadRequest, `{"detail":"Username already taken"}`, false},
		{service.ErrEmailTaken, http.StatusBadRequest, `{"detail":"Email already registered"}`, false},
		{fmt.Errorf("hash password: %w", bcrypt.ErrPasswordTooLong), http.StatusUnprocessableEntity, `{"detail":[{"field":"password","error":"max"}]}`, false},
		{service.ErrNoteNotFound, http.StatusNotFound, `{"detail":"Note not found"}`, false},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, `{"detail":"Internal server error"}`, false},
	}
	e := echo.New()
	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, zap.NewNop(), tc.err))
			require.Equal(t, tc.status, rec.Code)
			require.JSONEq(t, tc.body, rec.Body.String())
			if tc.challenge {
				require.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			} else {
				require.Empty(t, rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()
	h := HTTPErrorHandler(zap.NewNop())

	rec := httptest.NewRecorder()
	h(echo.ErrMethodNotAllowed, e.NewContext(httptest.NewRequest(http.MethodPatch, "/", nil), rec))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"detail":"Method Not Allowed"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h(errors.New("boom"), e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom")
}

func TestValidator_UsesWireNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&registerReq{Username: "a", Email: "nope"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "'email'")
	require.Contains(t, err.Error(), "'password'")

	require.NoError(t, v.Validate(&loginForm{Username: "a", Password: "b"}))
}
