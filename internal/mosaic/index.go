package mosaic

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// ExtractIndices converts a quantized image into a row-major grid of palette
// indices, one per pixel, by nearest Lab match against the catalog. For
// images produced by ApplyPreset the match is exact; nearest-match keeps the
// function usable on rasters that passed through a lossy re-encode.
func ExtractIndices(img image.Image) ([][]int, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("cannot index an empty image")
	}

	grid := make([][]int, height)
	for y := 0; y < height; y++ {
		row := make([]int, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := colorful.Color{
				R: float64(r>>8) / 255.0,
				G: float64(g>>8) / 255.0,
				B: float64(b>>8) / 255.0,
			}
			order, _ := rankPalette(c)
			row[x] = order[0]
		}
		grid[y] = row
	}
	return grid, nil
}
