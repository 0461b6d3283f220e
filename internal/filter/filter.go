// Package filter decides whether a source needs to be written to its
// destination.
package filter

import (
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/zeebo/blake3"
)

// Newer reports whether dst is missing or older than src.
func Newer(fsys afero.Fs, src, dst string) (bool, error) {
	si, err := fsys.Stat(src)
	if err != nil {
		return false, err
	}
	di, err := fsys.Stat(dst)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return di.ModTime().Before(si.ModTime()), nil
}

// Changed reports whether dst is missing or its content differs from
// data.
func Changed(fsys afero.Fs, data []byte, dst string) (bool, error) {
	f, err := fsys.Open(dst)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	current, err := Digest(f)
	if err != nil {
		return false, err
	}
	return current != blake3.Sum256(data), nil
}

// Digest returns the BLAKE3-256 digest of r.
func Digest(r io.Reader) ([32]byte, error) {
	h := blake3.New()
	var sum [32]byte
	if _, err := io.Copy(h, r); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
