package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ironsheep/mosaic3d/internal/mosaic"
)

// MosaicGenerator is the pipeline capability the handler depends on.
// Satisfied by *mosaic.Pipeline; tests substitute fakes.
type MosaicGenerator interface {
	Generate(ctx context.Context, data []byte, size int) (image.Image, error)
}

// HealthHandler serves the liveness probe. It has no dependencies: the probe
// answers regardless of preset or tile state.
type HealthHandler struct{}

// NewHealthHandler creates a health handler.
func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

// Handle processes GET /health.
func (h *HealthHandler) Handle(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// MosaicHandler serves POST /mosaic3d.
type MosaicHandler struct {
	generator MosaicGenerator
}

// NewMosaicHandler creates the mosaic endpoint handler.
func NewMosaicHandler(generator MosaicGenerator) *MosaicHandler {
	return &MosaicHandler{generator: generator}
}

// Handle processes POST /mosaic3d: multipart form with a required "file"
// image payload and an optional "size" selector (default 64). On success it
// streams the rendered mosaic as image/png.
func (h *MosaicHandler) Handle(c echo.Context) error {
	size := mosaic.DefaultSize
	if v := c.FormValue("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "size must be 64 or 96")
		}
		size = n
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file field is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read image: %v", err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("failed to read image: %v", err))
	}

	out, err := h.generator.Generate(c.Request().Context(), data, size)
	if err != nil {
		var bad *mosaic.BadInputError
		if errors.As(err, &bad) {
			return echo.NewHTTPError(http.StatusBadRequest, bad.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("failed to encode mosaic: %v", err))
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
