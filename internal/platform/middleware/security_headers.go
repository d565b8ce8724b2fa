package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets hardening headers on every response. API responses
// under apiPrefix additionally forbid caching and all resource loading;
// static pages keep the browser defaults for those two.
func SecurityHeaders(apiPrefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")

			// Appointment payloads include patient names.
			if strings.HasPrefix(c.Request().URL.Path, apiPrefix) {
				h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
				h.Set("Cache-Control", "no-store")
			}

			return next(c)
		}
	}
}
