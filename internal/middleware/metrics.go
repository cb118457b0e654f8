package middleware

import (
	"time"

	"github.com/anonto42/letterly/backend/internal/metrics"
	"github.com/labstack/echo/v4"
)

// Metrics records latency and count per route template.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.RecordAPIRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
