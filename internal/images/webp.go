package images

import (
	"bytes"
	"fmt"
	"image"

	"github.com/gen2brain/webp"
)

// WebPOptions controls WebP encoding.
type WebPOptions struct {
	Quality  int
	Lossless bool
}

// ToWebP decodes a raster image and encodes it as WebP.
func ToWebP(data []byte, opts WebPOptions) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	q := opts.Quality
	if q <= 0 {
		q = 75
	}
	var b bytes.Buffer
	if err := webp.Encode(&b, img, webp.Options{Quality: q, Lossless: opts.Lossless}); err != nil {
		return nil, fmt.Errorf("encode webp: %w", err)
	}
	return b.Bytes(), nil
}
