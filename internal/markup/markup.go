// Package markup assembles HTML pages: @@include partials, @@variable
// substitution from a JSON context, WebP picture wrapping and optional
// minification.
package markup

import (
	"bytes"
	"path"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/minifier"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	mdhtml "github.com/yuin/goldmark/renderer/html"
)

// Renderer assembles pages from a project filesystem.
type Renderer struct {
	fs       afero.Fs
	basePath string
	context  []byte
	webp     bool
	minify   bool
	md       goldmark.Markdown
}

// Options configures a Renderer.
type Options struct {
	BasePath string
	Context  []byte
	WebP     bool
	Minify   bool
}

// NewRenderer returns a Renderer reading partials from fsys.
func NewRenderer(fsys afero.Fs, opts Options) *Renderer {
	ctx := opts.Context
	if len(ctx) == 0 {
		ctx = []byte("{}")
	}
	return &Renderer{
		fs:       fsys,
		basePath: opts.BasePath,
		context:  ctx,
		webp:     opts.WebP,
		minify:   opts.Minify,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(mdhtml.WithUnsafe()),
		),
	}
}

// Render assembles the page at name (a project-relative path).
func (r *Renderer) Render(name string) ([]byte, error) {
	out, err := r.expand(name, r.context, nil)
	if err != nil {
		return nil, err
	}

	if r.webp {
		if out, err = WrapPictures(out); err != nil {
			return nil, errors.NewIOError("rewrite images", err).WithLocation(name, 0, 0)
		}
	}

	if r.minify {
		if out, err = minifier.Bytes(minifier.HTML, out); err != nil {
			return nil, errors.NewCompileError("minify html", err).WithLocation(name, 0, 0)
		}
	}
	return out, nil
}

// expand resolves includes and variables in name. stack holds the chain
// of files currently being expanded.
func (r *Renderer) expand(name string, ctx []byte, stack []string) ([]byte, error) {
	for _, s := range stack {
		if s == name {
			chain := strings.Join(append(stack, name), " -> ")
			return nil, errors.NewValidationError("include cycle: " + chain).WithLocation(name, 0, 0)
		}
	}
	stack = append(stack, name)

	src, err := afero.ReadFile(r.fs, name)
	if err != nil {
		return nil, errors.NewIOError("read template", err).WithLocation(name, 0, 0)
	}

	directives, err := findIncludes(src)
	if err != nil {
		return nil, errors.NewValidationError(err.Error()).WithLocation(name, 0, 0)
	}

	var out bytes.Buffer
	last := 0
	for _, d := range directives {
		out.Write(Substitute(src[last:d.start], ctx))
		last = d.end

		target, err := r.resolve(name, d.target)
		if err != nil {
			return nil, errors.NewIOError("include not found: "+d.target, err).
				WithLocation(name, lineAt(src, d.start), 0)
		}
		childCtx, err := Overlay(ctx, d.params)
		if err != nil {
			return nil, errors.NewValidationError(err.Error()).WithLocation(name, lineAt(src, d.start), 0)
		}
		child, err := r.expand(target, childCtx, stack)
		if err != nil {
			return nil, err
		}
		out.Write(child)
	}
	out.Write(Substitute(src[last:], ctx))

	if path.Ext(name) == ".md" {
		var html bytes.Buffer
		if err := r.md.Convert(out.Bytes(), &html); err != nil {
			return nil, errors.NewCompileError("render markdown", err).WithLocation(name, 0, 0)
		}
		return html.Bytes(), nil
	}
	return out.Bytes(), nil
}

// resolve looks target up under the base path, then next to from.
func (r *Renderer) resolve(from, target string) (string, error) {
	candidates := []string{
		path.Join(r.basePath, target),
		path.Join(path.Dir(from), target),
	}
	var lastErr error
	for _, c := range candidates {
		info, err := r.fs.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.NewIOError(target+" is a directory", nil)
	}
	return "", lastErr
}
