package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medroute/medroute/internal/config"
	"github.com/medroute/medroute/internal/domain/appointment"
	"github.com/medroute/medroute/internal/platform/auth"
	"github.com/medroute/medroute/internal/platform/db"
	"github.com/medroute/medroute/internal/platform/middleware"
)

const apiPrefix = "/v1/"

// routes bundles the handlers newRouter mounts. DBHealth and Checks are
// supplied by the caller so the router can be built without a database.
type routes struct {
	Appointments *appointment.Handler
	DBHealth     echo.HandlerFunc
	Checks       map[string]db.Check
}

func newRouter(cfg *config.Config, logger zerolog.Logger, r routes) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(apiPrefix))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(echomw.BodyLimit("1M"))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if dir := staticDir(cfg.StaticDir); dir != "" {
		e.Use(echomw.StaticWithConfig(echomw.StaticConfig{
			Root: dir,
			Skipper: func(c echo.Context) bool {
				return !auth.IsPublicPath(c.Request().URL.Path)
			},
		}))
	}

	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.JWTSecret),
		Skipper:    auth.AuthSkipper,
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.DBHealth != nil {
		e.GET("/health/db", r.DBHealth)
	}
	e.GET("/health/ready", db.ReadinessHandler(r.Checks))

	v1 := e.Group(strings.TrimSuffix(apiPrefix, "/"))
	r.Appointments.RegisterRoutes(v1.Group("/appointment"))

	return e
}

// staticDir returns dir when it names an existing directory.
func staticDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
