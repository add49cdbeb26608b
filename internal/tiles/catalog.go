// Package tiles manages the fixed palette of tile bitmaps the renderer
// composes mosaics from.
//
// The catalog maps each palette index to a color name, its nominal RGB value
// and the bitmap asset on disk. Assets are located once through an ordered
// directory search, loaded into a process-wide cache and served read-only to
// every request thereafter.
package tiles

import "image/color"

// PaletteSize is the number of entries in the tile palette.
const PaletteSize = 5

// Entry describes one palette slot: its index, display name, nominal color
// and the bitmap filename holding the rendered tile.
type Entry struct {
	Index int
	Name  string
	Color color.NRGBA
	File  string
}

// Catalog lists the palette entries in index order, brightest to darkest.
// Filenames follow the deployed asset convention "RGB (r, g, b).png".
var Catalog = [PaletteSize]Entry{
	{0, "white", color.NRGBA{220, 224, 225, 255}, "RGB (220, 224, 225).png"},
	{1, "medium stone grey", color.NRGBA{150, 160, 171, 255}, "RGB (150, 160, 171).png"},
	{2, "dark stone grey", color.NRGBA{88, 99, 110, 255}, "RGB (88, 99, 110).png"},
	{3, "sand blue", color.NRGBA{35, 46, 59, 255}, "RGB (35, 46, 59).png"},
	{4, "black", color.NRGBA{20, 25, 30, 255}, "RGB (20, 25, 30).png"},
}

// Filenames returns the bitmap filenames of every catalog entry, in index
// order. Used for error reporting when assets cannot be located.
func Filenames() []string {
	names := make([]string, 0, PaletteSize)
	for _, e := range Catalog {
		names = append(names, e.File)
	}
	return names
}
