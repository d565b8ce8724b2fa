package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// protectedPrefix is the only path tree that requires a bearer token.
// Health checks, static assets and unmatched routes stay public so that
// unknown paths answer 404 rather than 401.
const protectedPrefix = "/v1/"

// AuthSkipper returns true for requests whose path should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return IsPublicPath(c.Request().URL.Path)
}

// IsPublicPath reports whether path is served without authentication.
func IsPublicPath(path string) bool {
	return !strings.HasPrefix(path, protectedPrefix)
}
