package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/notes-backend/internal/metrics"
)

// Metrics records the latency of every request by route template, so
// /notes/:id is one series regardless of the id.
func Metrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(c.Request().Method, route, c.Response().Status, time.Since(start))
			return nil
		}
	}
}
