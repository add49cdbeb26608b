package tiles

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// MissingAssetsError is returned when no candidate directory contains the
// tile bitmaps. It enumerates every expected filename so an operator can see
// the full set that needs to be deployed, not just the first probe.
type MissingAssetsError struct {
	Searched []string
}

func (e *MissingAssetsError) Error() string {
	var b strings.Builder
	b.WriteString("tile images not found; place the following files in a 'tiles' directory or the working directory:\n")
	for _, name := range Filenames() {
		fmt.Fprintf(&b, "  - %s\n", name)
	}
	fmt.Fprintf(&b, "searched: %s", strings.Join(e.Searched, ", "))
	return b.String()
}

// LoadError is returned when the tile directory was resolved but one of the
// catalog bitmaps could not be read or decoded from it.
type LoadError struct {
	File string
	Dir  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load tile image %s in %s: %v", e.File, e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// SearchPaths returns the ordered candidate directories probed for tile
// assets: the caller-supplied directory first, then the conventional "tiles"
// subdirectory, the shared-data mount, the working directory, and a "tiles"
// directory next to the executable.
func SearchPaths(userDir string) []string {
	paths := make([]string, 0, 5)
	if userDir != "" {
		paths = append(paths, userDir)
	}
	paths = append(paths, "tiles", "/mnt/data", ".")
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "tiles"))
	}
	return paths
}

// Cache holds the process-wide mapping from palette index to loaded tile
// bitmap. The service populates it eagerly at startup; the mutex only
// matters if population is ever reached lazily by concurrent requests, in
// which case it keeps partial or duplicate loads from racing. The populated
// mapping is immutable and safe to share across requests without locking.
type Cache struct {
	mu     sync.Mutex
	paths  []string
	images map[int]image.Image
	dir    string
}

// NewCache creates an unpopulated cache that will search the given
// directories in order. The list usually comes from SearchPaths, but
// deployments may supply their own.
func NewCache(paths []string) *Cache {
	return &Cache{paths: paths}
}

// Images returns the palette-index to bitmap mapping, loading it from disk
// on the first call and reusing the cached mapping thereafter.
//
// All entries are loaded from a single resolved directory; a catalog entry
// absent from that directory fails the whole population attempt, and a
// partially loaded mapping is never published. Bitmaps are normalized to
// NRGBA at load time.
func (c *Cache) Images() (map[int]image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.images != nil {
		return c.images, nil
	}

	dir, err := c.resolveDir()
	if err != nil {
		return nil, err
	}

	loaded := make(map[int]image.Image, PaletteSize)
	for _, e := range Catalog {
		img, err := imaging.Open(filepath.Join(dir, e.File))
		if err != nil {
			return nil, &LoadError{File: e.File, Dir: dir, Err: err}
		}
		// Clone normalizes whatever the decoder produced to NRGBA.
		loaded[e.Index] = imaging.Clone(img)
	}

	c.images = loaded
	c.dir = dir
	return c.images, nil
}

// Dir returns the directory the assets were loaded from, or "" before the
// first successful population.
func (c *Cache) Dir() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dir
}

// resolveDir picks the tile directory by probing the first catalog entry's
// file in each candidate. The first directory containing the probe file is
// used for every entry; entries are never resolved across directories.
// As a last resort the catalog filenames are checked directly against the
// working directory.
func (c *Cache) resolveDir() (string, error) {
	probe := Catalog[0].File

	for _, dir := range c.paths {
		if _, err := os.Stat(filepath.Join(dir, probe)); err == nil {
			return dir, nil
		}
	}

	for _, name := range Filenames() {
		if _, err := os.Stat(name); err == nil {
			return ".", nil
		}
	}

	return "", &MissingAssetsError{Searched: c.paths}
}
