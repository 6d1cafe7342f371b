package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/notes-backend/internal/logging"
)

const redacted = "[REDACTED]"

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

// RedactHeaders flattens h for logging with credential headers masked.
func RedactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if sensitiveHeaders[strings.ToLower(k)] {
			out[k] = redacted
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// RequestLogger writes one entry per request. Request headers are included
// at debug level only, and always redacted.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			l := logging.FromContext(req.Context(), log)
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
				zap.String("user_id", userID(c)),
			}
			if l.Core().Enabled(zapcore.DebugLevel) {
				fields = append(fields, zap.Any("headers", RedactHeaders(req.Header)))
			}
			switch {
			case res.Status >= http.StatusInternalServerError:
				l.Error("request", append(fields, zap.Error(err))...)
			default:
				l.Info("request", fields...)
			}
			return nil
		}
	}
}
