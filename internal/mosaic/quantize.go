package mosaic

import (
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/mosaic3d/internal/tiles"
)

// paletteColors holds the catalog colors as colorful values for CIE-Lab
// distance computation, indexed by palette index.
var paletteColors = func() [tiles.PaletteSize]colorful.Color {
	var pal [tiles.PaletteSize]colorful.Color
	for _, e := range tiles.Catalog {
		pal[e.Index] = colorful.Color{
			R: float64(e.Color.R) / 255.0,
			G: float64(e.Color.G) / 255.0,
			B: float64(e.Color.B) / 255.0,
		}
	}
	return pal
}()

// rankPalette returns the palette indices ordered by Lab distance from c,
// closest first, together with the distances indexed by palette index.
func rankPalette(c colorful.Color) (order [tiles.PaletteSize]int, dists [tiles.PaletteSize]float64) {
	for i, pc := range paletteColors {
		order[i] = i
		dists[i] = c.DistanceLab(pc)
	}
	sort.Slice(order[:], func(a, b int) bool {
		return dists[order[a]] < dists[order[b]]
	})
	return order, dists
}

// quantizeWithInventory maps every pixel to a catalog color while limiting
// how many pixels any single color may claim.
//
// Assignment is greedy in regret order: pixels are processed by how much
// worse their second-best color is than their best, so the pixels with the
// most to lose claim their preferred color first. A pixel whose preferred
// colors are exhausted takes the nearest color with budget remaining. If
// every budget is exhausted (the caps cannot cover the grid) the remaining
// pixels fall back to their unconstrained nearest color; the budget balances
// tile inventory, it is not a hard contract.
func quantizeWithInventory(img *image.NRGBA, maxPerColor int) *image.NRGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	type cell struct {
		x, y   int
		order  [tiles.PaletteSize]int
		regret float64
	}

	cells := make([]cell, 0, width*height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.NRGBAAt(x, y)
			c := colorful.Color{
				R: float64(px.R) / 255.0,
				G: float64(px.G) / 255.0,
				B: float64(px.B) / 255.0,
			}
			order, dists := rankPalette(c)
			cells = append(cells, cell{
				x:      x,
				y:      y,
				order:  order,
				regret: dists[order[1]] - dists[order[0]],
			})
		}
	}

	sort.SliceStable(cells, func(a, b int) bool {
		return cells[a].regret > cells[b].regret
	})

	var remaining [tiles.PaletteSize]int
	for i := range remaining {
		remaining[i] = maxPerColor
	}

	out := image.NewNRGBA(bounds)
	for _, cl := range cells {
		chosen := cl.order[0]
		for _, idx := range cl.order {
			if remaining[idx] > 0 {
				chosen = idx
				remaining[idx]--
				break
			}
		}
		out.SetNRGBA(cl.x, cl.y, tiles.Catalog[chosen].Color)
	}
	return out
}
