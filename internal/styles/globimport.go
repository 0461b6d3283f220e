package styles

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

// globImportRe matches an @import/@use/@forward whose target contains
// glob metacharacters, e.g. @import "components/**/*.scss";
var globImportRe = regexp.MustCompile(`(?m)^([ \t]*)@(import|use|forward)\s+(["'])([^"'\n]*[*?{\[][^"'\n]*)["']\s*;`)

// ExpandGlobImports rewrites glob imports in src into one statement per
// matching stylesheet. Paths are resolved relative to dir, the directory
// of the file being compiled, and emitted without the partial underscore
// and extension. A glob with no matches is removed.
func ExpandGlobImports(fsys afero.Fs, dir string, src []byte) ([]byte, error) {
	iofs := afero.NewIOFS(fsys)
	var firstErr error

	out := globImportRe.ReplaceAllFunc(src, func(stmt []byte) []byte {
		m := globImportRe.FindSubmatch(stmt)
		indent, rule, quote, pattern := string(m[1]), string(m[2]), string(m[3]), string(m[4])

		full := path.Join(dir, pattern)
		matches, err := doublestar.Glob(iofs, full, doublestar.WithFilesOnly())
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("glob import %q: %w", pattern, err)
			}
			return stmt
		}
		sort.Strings(matches)

		var b strings.Builder
		for _, match := range matches {
			ext := path.Ext(match)
			if ext != ".scss" && ext != ".sass" && ext != ".css" {
				continue
			}
			rel, err := filepath.Rel(dir, match)
			if err != nil {
				rel = match
			}
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s@%s %s%s%s;", indent, rule, quote, importPath(filepath.ToSlash(rel)), quote)
		}
		return []byte(b.String())
	})

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// importPath strips the extension and partial underscore:
// "components/_button.scss" -> "components/button".
func importPath(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	d, f := path.Split(rel)
	return d + strings.TrimPrefix(f, "_")
}
