package mosaic

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/mosaic3d/internal/preset"
	"github.com/ironsheep/mosaic3d/internal/tiles"
)

// fakeStages records invocations and returns canned results so pipeline
// tests can observe orchestration without pixel work.
type fakeStages struct {
	applyCalls   int
	indexCalls   int
	renderCalls  int
	gotSize      int
	gotBudget    int
	applyErr     error
	indexErr     error
	renderErr    error
	renderResult image.Image
}

func (f *fakeStages) ApplyPreset(src image.Image, p preset.Preset, size, maxPerColor int) (image.Image, error) {
	f.applyCalls++
	f.gotSize = size
	f.gotBudget = maxPerColor
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	return image.NewNRGBA(image.Rect(0, 0, size, size)), nil
}

func (f *fakeStages) ExtractIndices(img image.Image) ([][]int, error) {
	f.indexCalls++
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	return [][]int{{0}}, nil
}

func (f *fakeStages) Render(indices [][]int, tileImages map[int]image.Image, maxWidth, maxHeight int) (image.Image, error) {
	f.renderCalls++
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	if f.renderResult != nil {
		return f.renderResult, nil
	}
	return image.NewNRGBA(image.Rect(0, 0, 8, 8)), nil
}

// pngPayload encodes a small gradient as PNG bytes.
func pngPayload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, createGradientImage(32, 32)); err != nil {
		t.Fatalf("failed to encode payload: %v", err)
	}
	return buf.Bytes()
}

// populatedTileCache writes a full tile set into a temp directory and
// returns a cache resolving to it.
func populatedTileCache(t *testing.T) *tiles.Cache {
	t.Helper()
	dir := t.TempDir()
	for _, e := range tiles.Catalog {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetNRGBA(x, y, e.Color)
			}
		}
		f, err := os.Create(filepath.Join(dir, e.File))
		if err != nil {
			t.Fatalf("failed to create tile file: %v", err)
		}
		if err := png.Encode(f, img); err != nil {
			t.Fatalf("failed to encode tile: %v", err)
		}
		f.Close()
	}
	return tiles.NewCache([]string{dir})
}

func TestMaxPerColorFor(t *testing.T) {
	if got := MaxPerColorFor(96); got != 2900 {
		t.Errorf("budget for 96: got %d, want 2900", got)
	}
	if got := MaxPerColorFor(64); got != DefaultMaxPerColor {
		t.Errorf("budget for 64: got %d, want %d", got, DefaultMaxPerColor)
	}
}

func TestAllowedSize(t *testing.T) {
	for size, want := range map[int]bool{64: true, 96: true, 0: false, 32: false, 128: false, -64: false} {
		if got := AllowedSize(size); got != want {
			t.Errorf("AllowedSize(%d): got %v, want %v", size, got, want)
		}
	}
}

func TestGenerate_BudgetSelection(t *testing.T) {
	p := preset.Default()
	for size, wantBudget := range map[int]int{64: DefaultMaxPerColor, 96: 2900} {
		stages := &fakeStages{}
		pl := NewPipeline(&p, populatedTileCache(t), stages)

		if _, err := pl.Generate(context.Background(), pngPayload(t), size); err != nil {
			t.Fatalf("Generate(size=%d) failed: %v", size, err)
		}
		if stages.gotSize != size {
			t.Errorf("stage size: got %d, want %d", stages.gotSize, size)
		}
		if stages.gotBudget != wantBudget {
			t.Errorf("stage budget for size %d: got %d, want %d", size, stages.gotBudget, wantBudget)
		}
	}
}

func TestGenerate_RejectsBadSizeBeforeAnyWork(t *testing.T) {
	p := preset.Default()
	stages := &fakeStages{}
	// Cache over an empty directory: touching it would fail loudly.
	pl := NewPipeline(&p, tiles.NewCache([]string{t.TempDir()}), stages)

	_, err := pl.Generate(context.Background(), []byte("not even an image"), 80)
	var bad *BadInputError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadInputError, got %v", err)
	}
	if stages.applyCalls+stages.indexCalls+stages.renderCalls != 0 {
		t.Error("no stage may run for a rejected size")
	}
}

func TestGenerate_UndecodablePayload(t *testing.T) {
	p := preset.Default()
	stages := &fakeStages{}
	pl := NewPipeline(&p, tiles.NewCache([]string{t.TempDir()}), stages)

	_, err := pl.Generate(context.Background(), []byte("definitely not an image"), 64)
	var bad *BadInputError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadInputError, got %v", err)
	}
	if got := bad.Error(); !bytes.Contains([]byte(got), []byte("failed to read image")) {
		t.Errorf("error should reference the decode failure, got %q", got)
	}
	if stages.applyCalls != 0 {
		t.Error("processing stages must not run for an undecodable payload")
	}
}

func TestGenerate_PresetNotLoaded(t *testing.T) {
	pl := NewPipeline(nil, populatedTileCache(t), &fakeStages{})

	_, err := pl.Generate(context.Background(), pngPayload(t), 64)
	if !errors.Is(err, ErrPresetNotLoaded) {
		t.Fatalf("expected ErrPresetNotLoaded, got %v", err)
	}
}

func TestGenerate_StageFailuresAreProcessingErrors(t *testing.T) {
	p := preset.Default()
	cause := fmt.Errorf("boom")

	cases := []struct {
		name   string
		stages *fakeStages
		wantOp string
	}{
		{"adjust stage", &fakeStages{applyErr: cause}, "2D mosaic"},
		{"index stage", &fakeStages{indexErr: cause}, "palette indices"},
		{"render stage", &fakeStages{renderErr: cause}, "3D mosaic"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pl := NewPipeline(&p, populatedTileCache(t), tc.stages)

			_, err := pl.Generate(context.Background(), pngPayload(t), 64)
			var pe *ProcessingError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProcessingError, got %v", err)
			}
			if !errors.Is(err, cause) {
				t.Error("cause must be attached to the processing error")
			}
			if !bytes.Contains([]byte(pe.Error()), []byte(tc.wantOp)) {
				t.Errorf("error %q should name the %s", pe.Error(), tc.wantOp)
			}
		})
	}
}

func TestGenerate_MissingTilesFailsRenderStage(t *testing.T) {
	p := preset.Default()
	pl := NewPipeline(&p, tiles.NewCache([]string{t.TempDir()}), &fakeStages{})

	_, err := pl.Generate(context.Background(), pngPayload(t), 64)
	var pe *ProcessingError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProcessingError for unresolvable tiles, got %v", err)
	}
	var missing *tiles.MissingAssetsError
	if !errors.As(err, &missing) {
		t.Error("missing-assets cause must be preserved")
	}
}

func TestGenerate_CancelledContext(t *testing.T) {
	p := preset.Default()
	stages := &fakeStages{}
	pl := NewPipeline(&p, populatedTileCache(t), stages)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := pl.Generate(ctx, pngPayload(t), 64); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stages.applyCalls != 0 {
		t.Error("no stage may run after cancellation")
	}
}

func TestGenerate_EndToEnd(t *testing.T) {
	p := preset.Default()
	pl := NewPipeline(&p, populatedTileCache(t), nil)

	out, err := pl.Generate(context.Background(), pngPayload(t), 64)
	if err != nil {
		t.Fatalf("end-to-end Generate failed: %v", err)
	}

	b := out.Bounds()
	if b.Dx() > MaxOutputWidth || b.Dy() > MaxOutputHeight {
		t.Errorf("output %dx%d exceeds %dx%d", b.Dx(), b.Dy(), MaxOutputWidth, MaxOutputHeight)
	}
}
