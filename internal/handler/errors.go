package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/notes-backend/internal/logging"
	"github.com/iliyamo/notes-backend/internal/middleware"
	"github.com/iliyamo/notes-backend/internal/service"
)

// Response details. They are part of the public contract.
const (
	msgIncorrectLogin = "Incorrect username or password"
	msgUsernameTaken  = "Username already taken"
	msgEmailTaken     = "Email already registered"
	msgNoteNotFound   = "Note not found"
	msgNoteDeleted    = "Note deleted"
	msgInternal       = "Internal server error"
)

// writeError maps a service error onto its HTTP response. Unknown errors
// are logged and answered with a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return middleware.Challenge(c, msgIncorrectLogin)
	case errors.Is(err, service.ErrUnauthenticated):
		return middleware.Challenge(c, middleware.MsgCouldNotValidate)
	case errors.Is(err, service.ErrAccountDisabled):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": middleware.MsgInactiveUser})
	case errors.Is(err, service.ErrUsernameTaken):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": msgUsernameTaken})
	case errors.Is(err, service.ErrEmailTaken):
		return c.JSON(http.StatusBadRequest, echo.Map{"detail": msgEmailTaken})
	case errors.Is(err, bcrypt.ErrPasswordTooLong):
		return passwordTooLong(c)
	case errors.Is(err, service.ErrNoteNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"detail": msgNoteNotFound})
	default:
		logging.FromContext(c.Request().Context(), log).Error("request failed",
			zap.String("route", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"detail": msgInternal})
	}
}

func passwordTooLong(c echo.Context) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"detail": []fieldError{{Field: "password", Error: "max"}},
	})
}

// HTTPErrorHandler renders errors that escape the handlers (unknown routes,
// wrong methods, middleware failures) with the same {"detail": ...} body.
func HTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, ok := he.Message.(string)
			if !ok {
				msg = http.StatusText(he.Code)
			}
			if c.Request().Method == http.MethodHead {
				_ = c.NoContent(he.Code)
				return
			}
			_ = c.JSON(he.Code, echo.Map{"detail": msg})
			return
		}
		_ = writeError(c, log, err)
	}
}
