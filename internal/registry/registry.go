// Package registry holds the path registry: the static mapping from an
// asset category to the globs it reads and the directory it writes.
package registry

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Asset categories known to the pipeline.
const (
	Styles  = "styles"
	Scripts = "scripts"
	HTML    = "html"
	Images  = "images"
	Sprite  = "sprite"
	Data    = "data"
	Static  = "static"
	Fonts   = "fonts"
	Files   = "files"
)

// Categories lists every category in a stable order.
var Categories = []string{Styles, Scripts, HTML, Images, Sprite, Data, Static, Fonts, Files}

// Entry maps one category to its source globs and destination.
type Entry struct {
	Src     []string `mapstructure:"src" yaml:"src"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Watch   []string `mapstructure:"watch" yaml:"watch,omitempty"`
	Dest    string   `mapstructure:"dest" yaml:"dest"`
	AltDest string   `mapstructure:"alt_dest" yaml:"alt_dest,omitempty"`
	Output  string   `mapstructure:"output" yaml:"output,omitempty"`
}

// Defaults returns the standard project layout writing under output.
func Defaults(output string) map[string]Entry {
	if output == "" {
		output = "dist"
	}
	dest := func(sub string) string {
		if sub == "" {
			return output
		}
		return path.Join(output, sub)
	}

	return map[string]Entry{
		Styles: {
			Src:    []string{"app/scss/style.scss"},
			Watch:  []string{"app/scss/**/*.scss"},
			Dest:   dest("css"),
			Output: "style.min.css",
		},
		Scripts: {
			Src:     []string{"app/js/main.js"},
			Watch:   []string{"app/js/**/*.js"},
			Exclude: []string{"app/js/**/*.min.js"},
			Dest:    dest("js"),
			Output:  "main.min.js",
		},
		HTML: {
			Src:   []string{"app/html/*.html"},
			Watch: []string{"app/html/**/*.html", "app/html/**/*.md", "app/data/**/*.json"},
			Dest:  dest(""),
		},
		Images: {
			Src:     []string{"app/images/**/*.{jpg,jpeg,png,gif,svg}"},
			Exclude: []string{"app/images/icons/**", "app/images/static/**"},
			Dest:    dest("images"),
			AltDest: dest("images"),
		},
		Sprite: {
			Src:    []string{"app/images/icons/*.svg"},
			Dest:   dest("images"),
			Output: "sprite.svg",
		},
		Data: {
			Src:  []string{"app/data/**/*.json"},
			Dest: dest("data"),
		},
		Static: {
			Src:  []string{"app/images/static/**/*"},
			Dest: dest("images"),
		},
		Fonts: {
			Src:  []string{"app/fonts/**/*"},
			Dest: dest("fonts"),
		},
		Files: {
			Src:  []string{"app/files/**/*"},
			Dest: dest("files"),
		},
	}
}

// Merge fills the empty fields of override from base.
func Merge(base, override Entry) Entry {
	if len(override.Src) == 0 {
		override.Src = base.Src
	}
	if len(override.Exclude) == 0 {
		override.Exclude = base.Exclude
	}
	if len(override.Watch) == 0 {
		override.Watch = base.Watch
	}
	if override.Dest == "" {
		override.Dest = base.Dest
	}
	if override.AltDest == "" {
		override.AltDest = base.AltDest
	}
	if override.Output == "" {
		override.Output = base.Output
	}
	return override
}

// Validate checks glob syntax and rejects paths that escape the project.
func (e Entry) Validate() error {
	if len(e.Src) == 0 {
		return fmt.Errorf("no source globs")
	}
	for _, group := range [][]string{e.Src, e.Exclude, e.Watch} {
		for _, p := range group {
			if err := validateGlob(p); err != nil {
				return err
			}
		}
	}
	for _, dir := range []string{e.Dest, e.AltDest} {
		if dir == "" {
			continue
		}
		if err := ValidateDir(dir); err != nil {
			return err
		}
	}
	if e.Dest == "" {
		return fmt.Errorf("no destination")
	}
	if strings.ContainsAny(e.Output, `/\`) {
		return fmt.Errorf("output %q must be a file name", e.Output)
	}
	return nil
}

func validateGlob(p string) error {
	if p == "" {
		return fmt.Errorf("empty glob")
	}
	if !doublestar.ValidatePattern(p) {
		return fmt.Errorf("invalid glob %q", p)
	}
	if strings.HasPrefix(p, "/") || hasParentRef(p) {
		return fmt.Errorf("glob %q must stay inside the project", p)
	}
	return nil
}

// ValidateDir rejects absolute and escaping directories.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("empty directory")
	}
	if strings.HasPrefix(dir, "/") || hasParentRef(dir) {
		return fmt.Errorf("directory %q must stay inside the project", dir)
	}
	return nil
}

func hasParentRef(p string) bool {
	for _, seg := range strings.Split(path.Clean(p), "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}

// WatchPatterns returns the globs that should trigger this category.
func (e Entry) WatchPatterns() []string {
	if len(e.Watch) > 0 {
		return e.Watch
	}
	return e.Src
}

// Matches reports whether the slash-separated project path matches one
// of patterns and none of the entry's excludes.
func (e Entry) Matches(patterns []string, name string) bool {
	name = Normalize(name)
	if e.Excluded(name) {
		return false
	}
	return MatchAny(patterns, name)
}

// Excluded reports whether name is removed by an exclude glob.
func (e Entry) Excluded(name string) bool {
	return MatchAny(e.Exclude, Normalize(name))
}

// MatchAny reports whether name matches any pattern.
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(Normalize(p), name); ok {
			return true
		}
	}
	return false
}

// Normalize cleans a project-relative path into slash form without a
// leading "./".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	return strings.TrimPrefix(p, "./")
}

// Registry is the immutable set of entries for a run.
type Registry struct {
	entries map[string]Entry
}

// New validates entries and builds a registry.
func New(entries map[string]Entry) (*Registry, error) {
	copied := make(map[string]Entry, len(entries))
	for name, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("paths.%s: %w", name, err)
		}
		copied[name] = e
	}
	return &Registry{entries: copied}, nil
}

// Get returns the entry for a category.
func (r *Registry) Get(name string) (Entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// Names returns the registered categories, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
