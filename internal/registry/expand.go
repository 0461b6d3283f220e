package registry

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/spf13/afero"
)

// Source is one file matched by an entry.
type Source struct {
	// Path is the project-relative slash path.
	Path string
	// Rel is Path relative to the static base of the glob that matched it.
	Rel string
}

// Expand resolves the entry's source globs against fsys, dropping
// excluded files. Results are sorted by Path and unique. Files matched by
// a literal glob keep their declared order ahead of wildcard matches. A
// literal path that does not exist is an error; a wildcard matching
// nothing is not.
func Expand(fsys afero.Fs, e Entry) ([]Source, error) {
	iofs := afero.NewIOFS(fsys)
	seen := make(map[string]bool)
	var literal, matched []Source

	for _, pattern := range e.Src {
		pattern = Normalize(pattern)
		base, _ := doublestar.SplitPattern(pattern)

		matches, err := doublestar.Glob(iofs, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", pattern, err)
		}

		isLiteral := !hasMeta(pattern)
		if isLiteral && len(matches) == 0 {
			return nil, errors.NewIOError("source file not found", fs.ErrNotExist).WithLocation(pattern, 0, 0)
		}
		batch := make([]Source, 0, len(matches))
		for _, m := range matches {
			if seen[m] || e.Excluded(m) {
				continue
			}
			seen[m] = true
			batch = append(batch, Source{Path: m, Rel: relTo(base, m)})
		}
		if isLiteral {
			literal = append(literal, batch...)
			continue
		}
		matched = append(matched, batch...)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Path < matched[j].Path })
	return append(literal, matched...), nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func relTo(base, p string) string {
	if base == "." || base == "" {
		return p
	}
	rel := strings.TrimPrefix(p, base)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return path.Base(p)
	}
	return rel
}

// DestPath maps a source to its file under dir, optionally swapping the
// extension (ext includes the dot).
func DestPath(dir string, src Source, ext string) string {
	rel := src.Rel
	if ext != "" {
		rel = strings.TrimSuffix(rel, path.Ext(rel)) + ext
	}
	return path.Join(dir, rel)
}
