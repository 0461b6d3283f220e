package server

//go:generate templ generate -f listing.templ

import (
	"fmt"
	"path"
	"time"
)

// ListingEntry is one row of a directory listing.
type ListingEntry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

func (e ListingEntry) href(dir string) string {
	p := path.Join(dir, e.Name)
	if e.IsDir {
		p += "/"
	}
	return p
}

func (e ListingEntry) label() string {
	if e.IsDir {
		return e.Name + "/"
	}
	return e.Name
}

func (e ListingEntry) sizeText() string {
	if e.IsDir {
		return "-"
	}
	return formatSize(e.Size)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
