// Package images optimizes raster and vector images and encodes WebP
// variants.
package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"github.com/conneroisu/assetflow/internal/minifier"
	"golang.org/x/image/draw"

	// Extra decoders for WebP conversion inputs.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Options controls raster re-encoding.
type Options struct {
	// Quality is the JPEG quality, 1-100.
	Quality int
	// MaxWidth downscales wider images when positive.
	MaxWidth int
}

// Optimize returns optimized bytes for a file named name. When the result
// is not smaller than data and no resize happened, data is returned.
func Optimize(name string, data []byte, opts Options) ([]byte, error) {
	var (
		out     []byte
		resized bool
		err     error
	)

	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		out, resized, err = reencode(data, opts, func(b *bytes.Buffer, img image.Image) error {
			q := opts.Quality
			if q <= 0 {
				q = 80
			}
			return jpeg.Encode(b, img, &jpeg.Options{Quality: q})
		})
	case ".png":
		out, resized, err = reencode(data, opts, func(b *bytes.Buffer, img image.Image) error {
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			return enc.Encode(b, img)
		})
	case ".svg":
		out, err = minifier.Bytes(minifier.SVG, data)
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("optimize %s: %w", name, err)
	}

	if !resized && len(out) >= len(data) {
		return data, nil
	}
	return out, nil
}

func reencode(data []byte, opts Options, encode func(*bytes.Buffer, image.Image) error) ([]byte, bool, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}
	img, resized := Resize(img, opts.MaxWidth)

	var b bytes.Buffer
	if err := encode(&b, img); err != nil {
		return nil, false, err
	}
	return b.Bytes(), resized, nil
}

// Resize scales img down to maxWidth, keeping the aspect ratio. Narrower
// images and a non-positive maxWidth return img unchanged.
func Resize(img image.Image, maxWidth int) (image.Image, bool) {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img, false
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, true
}

// IsRaster reports whether name can be decoded and converted to WebP.
func IsRaster(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
