package build

import (
	"fmt"
	"io"
	"path"

	"github.com/spf13/afero"
)

// WriteFile writes data to name atomically: the bytes land in a temp file
// in the same directory that is then renamed over name.
func WriteFile(fsys afero.Fs, name string, data []byte) error {
	dir := path.Dir(name)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(fsys, dir, "."+path.Base(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fsys.Remove(tmpName)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := fsys.Chmod(tmpName, 0o644); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err := fsys.Rename(tmpName, name); err != nil {
		fsys.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

// CopyFile copies src to dst atomically.
func CopyFile(fsys afero.Fs, src, dst string) error {
	in, err := fsys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return WriteFile(fsys, dst, data)
}

