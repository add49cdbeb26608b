package mosaic

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/chai2010/webp"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DecodeImage decodes an uploaded payload into a raster. The stdlib decoder
// registry handles PNG, JPEG, GIF and (via x/image) lossy WebP; payloads the
// registry rejects get one more chance through chai2010/webp, which covers
// lossless and extended WebP variants.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return wimg, nil
	}
	return nil, fmt.Errorf("decode: %w", err)
}
