// Package mosaic implements the mosaic generation pipeline: preset-driven
// preprocessing, inventory-constrained palette quantization, index
// extraction and tile composition, plus the per-request orchestrator that
// sequences them.
package mosaic

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/mosaic3d/internal/preset"
	"github.com/ironsheep/mosaic3d/internal/tiles"
)

// Grid sizes the service accepts, and the per-color cell budgets they map
// to. The 96 grid has proportionally more cells to fill per color, so it
// carries a deliberately larger cap; 64 uses the system default.
const (
	DefaultSize = 64
	LargeSize   = 96

	DefaultMaxPerColor   = 1300
	largeSizeMaxPerColor = 2900
)

// ErrPresetNotLoaded reports a request reaching the pipeline before startup
// initialization completed. Unreachable when the service eagerly loads the
// preset before accepting traffic.
var ErrPresetNotLoaded = errors.New("preset not loaded")

// BadInputError marks a failure caused by the client's input (bad size
// value, undecodable image). Handlers map it to a 4xx response.
type BadInputError struct {
	Reason string
	Err    error
}

func (e *BadInputError) Error() string {
	switch {
	case e.Reason != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Reason != "":
		return e.Reason
	default:
		return e.Err.Error()
	}
}

func (e *BadInputError) Unwrap() error { return e.Err }

// ProcessingError marks a failure inside one of the processing stages, with
// the stage identified in Op. Handlers map it to a 5xx response carrying the
// underlying cause.
type ProcessingError struct {
	Op  string
	Err error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// AllowedSize reports whether size is one of the supported grid sizes.
func AllowedSize(size int) bool {
	return size == DefaultSize || size == LargeSize
}

// MaxPerColorFor returns the per-color cell budget for a grid size.
func MaxPerColorFor(size int) int {
	if size == LargeSize {
		return largeSizeMaxPerColor
	}
	return DefaultMaxPerColor
}

// Stages is the image-processing capability the pipeline depends on. The
// production implementation lives in this package; tests substitute fakes to
// observe the orchestration without paying for pixel work.
type Stages interface {
	// ApplyPreset adjusts and quantizes the photograph down to a size×size
	// grid of palette colors under the per-color budget.
	ApplyPreset(src image.Image, p preset.Preset, size, maxPerColor int) (image.Image, error)

	// ExtractIndices converts a quantized raster into a grid of palette
	// indices.
	ExtractIndices(img image.Image) ([][]int, error)

	// Render composes the output raster from the index grid and the tile
	// bitmaps, bounded to maxWidth×maxHeight.
	Render(indices [][]int, tileImages map[int]image.Image, maxWidth, maxHeight int) (image.Image, error)
}

// DefaultStages implements Stages with this package's algorithms.
type DefaultStages struct{}

func (DefaultStages) ApplyPreset(src image.Image, p preset.Preset, size, maxPerColor int) (image.Image, error) {
	return ApplyPreset(src, p, size, maxPerColor)
}

func (DefaultStages) ExtractIndices(img image.Image) ([][]int, error) {
	return ExtractIndices(img)
}

func (DefaultStages) Render(indices [][]int, tileImages map[int]image.Image, maxWidth, maxHeight int) (image.Image, error) {
	return Render(indices, tileImages, maxWidth, maxHeight)
}

// Pipeline orchestrates one mosaic request: validation, decode, budget
// selection, then the three processing stages in fixed order. It reads the
// shared preset and tile cache and never mutates them, so a single Pipeline
// serves concurrent requests without locking.
type Pipeline struct {
	preset *preset.Preset
	tiles  *tiles.Cache
	stages Stages
}

// NewPipeline builds a pipeline over the shared preset and tile cache.
// A nil stages uses the production implementations.
func NewPipeline(p *preset.Preset, cache *tiles.Cache, stages Stages) *Pipeline {
	if stages == nil {
		stages = DefaultStages{}
	}
	return &Pipeline{preset: p, tiles: cache, stages: stages}
}

// Generate runs the full pipeline over an uploaded payload and returns the
// rendered mosaic.
//
// Stage failures carry their origin: client-attributable problems surface as
// *BadInputError, stage failures as *ProcessingError with the stage name and
// cause. Nothing is retried; the first failure wins. The context is checked
// between stages so an abandoned request stops before the next CPU-heavy
// step.
func (pl *Pipeline) Generate(ctx context.Context, data []byte, size int) (image.Image, error) {
	if pl.preset == nil {
		return nil, ErrPresetNotLoaded
	}
	if !AllowedSize(size) {
		return nil, &BadInputError{Reason: "size must be 64 or 96"}
	}

	src, err := DecodeImage(data)
	if err != nil {
		return nil, &BadInputError{Reason: "failed to read image", Err: err}
	}

	maxPerColor := MaxPerColorFor(size)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	quantized, err := pl.stages.ApplyPreset(src, *pl.preset, size, maxPerColor)
	if err != nil {
		return nil, &ProcessingError{Op: "error generating 2D mosaic", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	indices, err := pl.stages.ExtractIndices(quantized)
	if err != nil {
		return nil, &ProcessingError{Op: "error computing palette indices", Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tileImages, err := pl.tiles.Images()
	if err != nil {
		return nil, &ProcessingError{Op: "error generating 3D mosaic", Err: err}
	}
	out, err := pl.stages.Render(indices, tileImages, MaxOutputWidth, MaxOutputHeight)
	if err != nil {
		return nil, &ProcessingError{Op: "error generating 3D mosaic", Err: err}
	}
	return out, nil
}
