package build

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// Precompression formats.
const (
	FormatGzip = "gzip"
	FormatZstd = "zstd"
)

// compressible lists the extensions that get precompressed siblings.
var compressible = map[string]bool{
	".css":  true,
	".js":   true,
	".html": true,
	".svg":  true,
	".json": true,
}

type encoder struct {
	ext    string
	encode func([]byte) ([]byte, error)
}

func newEncoders(formats []string) ([]encoder, error) {
	var encs []encoder
	for _, f := range formats {
		switch strings.ToLower(f) {
		case FormatGzip:
			encs = append(encs, encoder{ext: ".gz", encode: gzipBytes})
		case FormatZstd:
			zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
			if err != nil {
				return nil, err
			}
			encs = append(encs, encoder{ext: ".zst", encode: func(b []byte) ([]byte, error) {
				return zw.EncodeAll(b, make([]byte, 0, len(b)/2)), nil
			}})
		default:
			return nil, fmt.Errorf("unknown precompression format %q", f)
		}
	}
	return encs, nil
}

func gzipBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(b); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Precompress writes compressed siblings for every text artifact under
// dir. A sibling is only written when it is smaller than the original.
func Precompress(ctx context.Context, fsys afero.Fs, dir string, formats []string) (Result, error) {
	encs, err := newEncoders(formats)
	if err != nil {
		return Result{}, errors.NewConfigError(err.Error())
	}

	var res Result
	err = afero.Walk(fsys, dir, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() || !compressible[strings.ToLower(path.Ext(name))] {
			return nil
		}
		name = filepath.ToSlash(name)

		data, err := afero.ReadFile(fsys, name)
		if err != nil {
			return errors.NewIOError("read", err).WithLocation(name, 0, 0)
		}
		for _, enc := range encs {
			out, err := enc.encode(data)
			if err != nil {
				return errors.NewInternalError("compress", err).WithLocation(name, 0, 0)
			}
			if len(out) >= len(data) {
				res.Skipped++
				continue
			}
			dst := name + enc.ext
			if err := WriteFile(fsys, dst, out); err != nil {
				return errors.NewIOError("write", err).WithLocation(dst, 0, 0)
			}
			res.Written = append(res.Written, dst)
		}
		return nil
	})
	return res, err
}
