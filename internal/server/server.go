// Package server exposes the mosaic pipeline over HTTP.
//
// The surface is deliberately small: a liveness probe and a single multipart
// endpoint that accepts a photograph and streams back the rendered mosaic.
// Error responses are JSON objects with a human-readable "detail" field.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ironsheep/mosaic3d/internal/config"
)

// Server hosts the mosaic HTTP API.
type Server struct {
	echo *echo.Echo
	cfg  *config.Config
}

// New assembles the echo instance: middleware, error handling and routes.
// The generator is the pipeline serving POST /mosaic3d; it must already be
// backed by a loaded preset and populated tile cache.
func New(cfg *config.Config, generator MosaicGenerator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				slog.InfoContext(ctx, "request completed",
					"request_id", v.RequestID,
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				slog.ErrorContext(ctx, "request failed",
					"request_id", v.RequestID,
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))

	healthHandler := NewHealthHandler()
	mosaicHandler := NewMosaicHandler(generator)

	e.GET("/health", healthHandler.Handle)
	e.POST("/mosaic3d", mosaicHandler.Handle)

	return &Server{echo: e, cfg: cfg}
}

// Start begins serving on the configured address and blocks until the
// listener stops. A graceful Shutdown is not reported as an error.
func (s *Server) Start() error {
	if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying http.Handler, used by tests to drive the
// full middleware and routing stack without a network listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// httpErrorHandler renders every error as {"detail": "..."}, matching the
// response contract of the service's original deployment.
func httpErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	detail := "internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprintf("%v", he.Message)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"detail": detail})
}
