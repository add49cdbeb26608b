package tiles

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTileSet writes a bitmap for every catalog entry into dir, each filled
// with its nominal palette color.
func writeTileSet(t *testing.T, dir string) {
	t.Helper()
	for _, e := range Catalog {
		writeTile(t, dir, e.File, e)
	}
}

func writeTile(t *testing.T, dir, name string, e Entry) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, e.Color)
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestCacheImages(t *testing.T) {
	t.Run("loads all entries from resolved directory", func(t *testing.T) {
		dir := t.TempDir()
		writeTileSet(t, dir)

		cache := NewCache([]string{dir})
		images, err := cache.Images()
		require.NoError(t, err)
		require.Len(t, images, PaletteSize)
		assert.Equal(t, dir, cache.Dir())

		for _, e := range Catalog {
			img, ok := images[e.Index]
			require.True(t, ok, "missing palette index %d", e.Index)
			// Normalized to NRGBA at load time.
			assert.IsType(t, &image.NRGBA{}, img)
		}
	})

	t.Run("population is memoized", func(t *testing.T) {
		dir := t.TempDir()
		writeTileSet(t, dir)

		cache := NewCache([]string{dir})
		first, err := cache.Images()
		require.NoError(t, err)

		// Remove the files: a second call must not touch disk.
		for _, name := range Filenames() {
			require.NoError(t, os.Remove(filepath.Join(dir, name)))
		}

		second, err := cache.Images()
		require.NoError(t, err)
		for idx := range first {
			assert.Same(t, first[idx].(*image.NRGBA), second[idx].(*image.NRGBA))
		}
	})

	t.Run("candidate directories probed in order", func(t *testing.T) {
		low := t.TempDir()
		high := t.TempDir()
		writeTileSet(t, low)
		writeTileSet(t, high)

		cache := NewCache([]string{high, low})
		_, err := cache.Images()
		require.NoError(t, err)
		assert.Equal(t, high, cache.Dir())
	})

	t.Run("probe skips directories without the first entry", func(t *testing.T) {
		empty := t.TempDir()
		full := t.TempDir()
		writeTileSet(t, full)

		cache := NewCache([]string{empty, full})
		_, err := cache.Images()
		require.NoError(t, err)
		assert.Equal(t, full, cache.Dir())
	})

	t.Run("missing everywhere enumerates all filenames", func(t *testing.T) {
		cache := NewCache([]string{t.TempDir(), t.TempDir()})

		_, err := cache.Images()
		require.Error(t, err)

		var missing *MissingAssetsError
		require.ErrorAs(t, err, &missing)
		for _, name := range Filenames() {
			assert.Contains(t, err.Error(), name)
		}
	})

	t.Run("entry absent from resolved directory fails population", func(t *testing.T) {
		dir := t.TempDir()
		writeTileSet(t, dir)
		// The probe file stays; a later entry goes missing.
		require.NoError(t, os.Remove(filepath.Join(dir, Catalog[3].File)))

		cache := NewCache([]string{dir})
		_, err := cache.Images()
		require.Error(t, err)

		var load *LoadError
		require.ErrorAs(t, err, &load)
		assert.Equal(t, Catalog[3].File, load.File)

		// Partial caches are never published: the failure is retryable and a
		// fixed directory succeeds on the next call.
		writeTile(t, dir, Catalog[3].File, Catalog[3])
		images, err := cache.Images()
		require.NoError(t, err)
		assert.Len(t, images, PaletteSize)
	})

	t.Run("corrupt bitmap names the offending file", func(t *testing.T) {
		dir := t.TempDir()
		writeTileSet(t, dir)
		require.NoError(t, os.WriteFile(filepath.Join(dir, Catalog[1].File), []byte("not a png"), 0o644))

		cache := NewCache([]string{dir})
		_, err := cache.Images()
		require.Error(t, err)
		assert.Contains(t, err.Error(), Catalog[1].File)
	})
}

func TestSearchPaths(t *testing.T) {
	paths := SearchPaths("/custom/tiles")
	require.GreaterOrEqual(t, len(paths), 4)
	assert.Equal(t, "/custom/tiles", paths[0])
	assert.Equal(t, "tiles", paths[1])
	assert.Equal(t, "/mnt/data", paths[2])
	assert.Equal(t, ".", paths[3])

	// Without a caller-supplied directory the conventional chain remains.
	paths = SearchPaths("")
	assert.Equal(t, "tiles", paths[0])
}

func TestFilenames(t *testing.T) {
	names := Filenames()
	require.Len(t, names, PaletteSize)
	assert.Equal(t, Catalog[0].File, names[0])
	assert.Equal(t, Catalog[4].File, names[4])
}
