// Package styles compiles the stylesheet bundle: glob import expansion,
// Sass compilation, vendor prefixing, WebP companion rules, concatenation
// and minification.
package styles

import (
	"bytes"
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/minifier"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

// Options controls a bundle build.
type Options struct {
	Compiler Compiler
	// Root is the absolute project directory used for compiler paths.
	Root string
	// IncludePaths are project-relative Sass load paths.
	IncludePaths []string
	Engines      []api.Engine
	WebP         bool
}

// Bundle runs every source through the stylesheet chain and returns the
// minified concatenation in source order.
func Bundle(ctx context.Context, fsys afero.Fs, sources []registry.Source, opts Options) ([]byte, error) {
	includes := make([]string, len(opts.IncludePaths))
	for i, p := range opts.IncludePaths {
		includes[i] = filepath.Join(opts.Root, filepath.FromSlash(p))
	}

	var out bytes.Buffer
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		css, err := compileOne(ctx, fsys, src, includes, opts)
		if err != nil {
			return nil, err
		}
		out.Write(css)
		out.WriteByte('\n')
	}

	min, err := minifier.Bytes(minifier.CSS, out.Bytes())
	if err != nil {
		return nil, errors.NewCompileError("minify stylesheet bundle", err)
	}
	return min, nil
}

func compileOne(ctx context.Context, fsys afero.Fs, src registry.Source, includes []string, opts Options) ([]byte, error) {
	raw, err := afero.ReadFile(fsys, src.Path)
	if err != nil {
		return nil, errors.NewIOError("read stylesheet", err).WithLocation(src.Path, 0, 0)
	}

	expanded, err := ExpandGlobImports(fsys, path.Dir(src.Path), raw)
	if err != nil {
		return nil, errors.NewCompileError("expand glob imports", err).WithLocation(src.Path, 0, 0)
	}

	css := expanded
	if ext := path.Ext(src.Path); ext == ".scss" || ext == ".sass" {
		css, err = opts.Compiler.Compile(ctx, Input{
			Source:       expanded,
			Path:         filepath.Join(opts.Root, filepath.FromSlash(src.Path)),
			IncludePaths: includes,
		})
		if err != nil {
			return nil, relativize(err, opts.Root)
		}
	}

	css, err = Prefix(css, src.Path, opts.Engines)
	if err != nil {
		return nil, err
	}

	if opts.WebP {
		css, err = AddWebPRules(css)
		if err != nil {
			return nil, errors.NewCompileError("add webp rules", err).WithLocation(src.Path, 0, 0)
		}
	}
	return css, nil
}

// relativize rewrites an absolute error location to a project path.
func relativize(err error, root string) error {
	e, ok := err.(*errors.Error)
	if !ok || root == "" || !filepath.IsAbs(e.File) {
		return err
	}
	if rel, rerr := filepath.Rel(root, e.File); rerr == nil && !strings.HasPrefix(rel, "..") {
		e.File = filepath.ToSlash(rel)
	}
	return e
}
