package mosaic

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
)

// Maximum dimensions of a rendered mosaic. The tile size is derived from
// these bounds and the grid dimensions; the output never exceeds them.
const (
	MaxOutputWidth  = 1920
	MaxOutputHeight = 1080
)

// Render composes the final mosaic raster by tiling palette bitmaps
// according to the index grid.
//
// Each distinct palette bitmap is resized once to the derived tile size and
// stamped per cell with image/draw. The tile size is the largest square that
// keeps the full grid within maxWidth×maxHeight.
func Render(indices [][]int, tileImages map[int]image.Image, maxWidth, maxHeight int) (*image.NRGBA, error) {
	rows := len(indices)
	if rows == 0 || len(indices[0]) == 0 {
		return nil, fmt.Errorf("index grid is empty")
	}
	cols := len(indices[0])
	for i, row := range indices {
		if len(row) != cols {
			return nil, fmt.Errorf("index grid is ragged: row %d has %d columns, want %d", i, len(row), cols)
		}
	}

	tileSize := maxWidth / cols
	if s := maxHeight / rows; s < tileSize {
		tileSize = s
	}
	if tileSize < 1 {
		return nil, fmt.Errorf("grid %dx%d does not fit in %dx%d output bounds", cols, rows, maxWidth, maxHeight)
	}

	scaled := make(map[int]*image.NRGBA, len(tileImages))
	for idx, img := range tileImages {
		scaled[idx] = imaging.Resize(img, tileSize, tileSize, imaging.Lanczos)
	}

	canvas := image.NewNRGBA(image.Rect(0, 0, cols*tileSize, rows*tileSize))
	for r, row := range indices {
		for c, idx := range row {
			tile, ok := scaled[idx]
			if !ok {
				return nil, fmt.Errorf("no tile bitmap for palette index %d at cell (%d,%d)", idx, c, r)
			}
			rect := image.Rect(c*tileSize, r*tileSize, (c+1)*tileSize, (r+1)*tileSize)
			draw.Draw(canvas, rect, tile, image.Point{}, draw.Src)
		}
	}
	return canvas, nil
}
