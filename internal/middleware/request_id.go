package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/notes-backend/internal/logging"
)

// RequestID echoes the caller's X-Request-ID or generates a uuid, sets it
// on the response and carries it in the request context for logging.
func RequestID() echo.MiddlewareFunc {
	return echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			r := c.Request()
			c.SetRequest(r.WithContext(logging.ContextWithRequestID(r.Context(), id)))
		},
	})
}
