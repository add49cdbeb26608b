// Package preset loads the tuned image-adjustment parameters applied to
// every mosaic request.
//
// A preset is read once at startup from a JSON file and shared read-only by
// all concurrent requests. Fields absent from the file keep their documented
// defaults, so a file containing only {"gamma": 2.0} is valid.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
)

// Preset holds the image-adjustment parameters for the mosaic pipeline.
//
// Contrast, Brightness and Gamma are multiplicative factors where 1.0 means
// no change. Blur and UnsharpRadius are pixel radii; UnsharpPercent is the
// unsharp-mask intensity in percent.
type Preset struct {
	Blur           float64 `json:"blur"`
	UnsharpRadius  float64 `json:"unsharp_radius"`
	UnsharpPercent int     `json:"unsharp_percent"`
	Contrast       float64 `json:"contrast"`
	Brightness     float64 `json:"brightness"`
	Gamma          float64 `json:"gamma"`
}

// Default returns a preset that leaves the input image unchanged.
func Default() Preset {
	return Preset{
		Blur:           0.0,
		UnsharpRadius:  0.0,
		UnsharpPercent: 0,
		Contrast:       1.0,
		Brightness:     1.0,
		Gamma:          1.0,
	}
}

// Load reads a preset from a JSON file.
//
// Missing fields fall back to their defaults. The returned error wraps the
// underlying os error when the file does not exist, so callers can test for
// it with errors.Is(err, fs.ErrNotExist). Malformed JSON is reported as a
// parse error naming the file.
func Load(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset file: %w", err)
	}

	p := Default()
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", path, err)
	}
	return &p, nil
}

// Validate checks that all parameters are in their legal ranges.
func (p Preset) Validate() error {
	if p.Blur < 0 {
		return fmt.Errorf("blur must be non-negative, got %g", p.Blur)
	}
	if p.UnsharpRadius < 0 {
		return fmt.Errorf("unsharp_radius must be non-negative, got %g", p.UnsharpRadius)
	}
	if p.UnsharpPercent < 0 {
		return fmt.Errorf("unsharp_percent must be non-negative, got %d", p.UnsharpPercent)
	}
	if p.Contrast <= 0 {
		return fmt.Errorf("contrast must be positive, got %g", p.Contrast)
	}
	if p.Brightness <= 0 {
		return fmt.Errorf("brightness must be positive, got %g", p.Brightness)
	}
	if p.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %g", p.Gamma)
	}
	return nil
}
