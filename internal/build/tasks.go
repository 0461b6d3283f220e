package build

import (
	"context"
	"path"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/filter"
	"github.com/conneroisu/assetflow/internal/images"
	"github.com/conneroisu/assetflow/internal/markup"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/conneroisu/assetflow/internal/scripts"
	"github.com/conneroisu/assetflow/internal/sprite"
	"github.com/conneroisu/assetflow/internal/styles"
	"github.com/spf13/afero"
)

// DefaultTasks returns every runnable task keyed by name.
func DefaultTasks() map[string]Task {
	tasks := []Task{
		{Name: config.TaskClean, Run: runClean},
		{Name: config.TaskStyles, Entry: registry.Styles, Stream: ReloadCSS, Run: runStyles},
		{Name: config.TaskScripts, Entry: registry.Scripts, Stream: ReloadPage, Run: runScripts},
		{Name: config.TaskHTML, Entry: registry.HTML, Stream: ReloadPage, Run: runHTML},
		{Name: config.TaskImages, Entry: registry.Images, Run: runImages},
		{Name: config.TaskWebP, Entry: registry.Images, Run: runWebP},
		{Name: config.TaskSprite, Entry: registry.Sprite, Run: runSprite},
		{Name: config.TaskData, Entry: registry.Data, Run: runData},
		{Name: config.TaskStatic, Entry: registry.Static, Run: copyTask(registry.Static)},
		{Name: config.TaskFonts, Entry: registry.Fonts, Run: copyTask(registry.Fonts)},
		{Name: config.TaskFiles, Entry: registry.Files, Run: copyTask(registry.Files)},
	}

	m := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		m[t.Name] = t
	}
	return m
}

// TransformTasks are the tasks Build runs in parallel after clean.
var TransformTasks = []string{
	config.TaskStyles, config.TaskScripts, config.TaskHTML, config.TaskImages,
	config.TaskWebP, config.TaskSprite, config.TaskData, config.TaskStatic,
	config.TaskFonts, config.TaskFiles,
}

func runStyles(ctx context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Styles)
	if err != nil || len(sources) == 0 {
		return Result{}, err
	}

	engines, err := styles.ParseTargets(env.Config.Styles.Targets)
	if err != nil {
		return Result{}, errors.NewConfigError(err.Error())
	}

	css, err := styles.Bundle(ctx, env.Fs, sources, styles.Options{
		Compiler:     env.Compiler,
		Root:         env.Root,
		IncludePaths: env.Config.Styles.IncludePaths,
		Engines:      engines,
		WebP:         env.Config.Styles.WebPCSS,
	})
	if err != nil {
		return Result{}, err
	}
	return writeOne(env.Fs, path.Join(entry.Dest, entry.Output), css)
}

func runScripts(ctx context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Scripts)
	if err != nil || len(sources) == 0 {
		return Result{}, err
	}

	target, err := scripts.ParseTarget(env.Config.Scripts.Target)
	if err != nil {
		return Result{}, errors.NewConfigError(err.Error())
	}

	js, err := scripts.Bundle(ctx, env.Fs, sources, target)
	if err != nil {
		return Result{}, err
	}
	return writeOne(env.Fs, path.Join(entry.Dest, entry.Output), js)
}

func runHTML(ctx context.Context, env *Env) (Result, error) {
	entry, pages, err := env.Sources(registry.HTML)
	if err != nil || len(pages) == 0 {
		return Result{}, err
	}

	_, data, err := env.Sources(registry.Data)
	if err != nil {
		return Result{}, err
	}
	tmplCtx, err := markup.BuildContext(env.Fs, data, env.Config.HTML.Context)
	if err != nil {
		return Result{}, err
	}

	r := markup.NewRenderer(env.Fs, markup.Options{
		BasePath: env.Config.HTML.BasePath,
		Context:  tmplCtx,
		WebP:     env.Config.HTML.WebP,
		Minify:   env.Config.HTML.Minify,
	})

	var res Result
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := r.Render(page.Path)
		if err != nil {
			return res, err
		}
		dst := registry.DestPath(entry.Dest, page, "")
		if err := WriteFile(env.Fs, dst, out); err != nil {
			return res, errors.NewIOError("write page", err).WithLocation(dst, 0, 0)
		}
		res.Written = append(res.Written, dst)
	}
	return res, nil
}

func runImages(ctx context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Images)
	if err != nil {
		return Result{}, err
	}
	opts := images.Options{
		Quality:  env.Config.Images.Quality,
		MaxWidth: env.Config.Images.MaxWidth,
	}

	return eachNewer(ctx, env.Fs, sources, func(src registry.Source) string {
		return registry.DestPath(entry.Dest, src, "")
	}, func(src registry.Source, data []byte) ([]byte, error) {
		return images.Optimize(src.Path, data, opts)
	})
}

func runWebP(ctx context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Images)
	if err != nil {
		return Result{}, err
	}
	dest := entry.AltDest
	if dest == "" {
		dest = entry.Dest
	}
	opts := images.WebPOptions{
		Quality:  env.Config.WebP.Quality,
		Lossless: env.Config.WebP.Lossless,
	}

	rasters := sources[:0:0]
	for _, src := range sources {
		if images.IsRaster(src.Path) {
			rasters = append(rasters, src)
		}
	}

	return eachNewer(ctx, env.Fs, rasters, func(src registry.Source) string {
		return registry.DestPath(dest, src, ".webp")
	}, func(_ registry.Source, data []byte) ([]byte, error) {
		return images.ToWebP(data, opts)
	})
}

// eachNewer transforms every source whose destination is missing or
// older, leaving up-to-date destinations untouched.
func eachNewer(ctx context.Context, fsys afero.Fs, sources []registry.Source,
	dest func(registry.Source) string, transform func(registry.Source, []byte) ([]byte, error)) (Result, error) {
	var res Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dst := dest(src)

		newer, err := filter.Newer(fsys, src.Path, dst)
		if err != nil {
			return res, errors.NewIOError("stat", err).WithLocation(src.Path, 0, 0)
		}
		if !newer {
			res.Skipped++
			continue
		}

		data, err := afero.ReadFile(fsys, src.Path)
		if err != nil {
			return res, errors.NewIOError("read", err).WithLocation(src.Path, 0, 0)
		}
		out, err := transform(src, data)
		if err != nil {
			return res, errors.NewCompileError("transform image", err).WithLocation(src.Path, 0, 0)
		}
		if err := WriteFile(fsys, dst, out); err != nil {
			return res, errors.NewIOError("write", err).WithLocation(dst, 0, 0)
		}
		res.Written = append(res.Written, dst)
	}
	return res, nil
}

func runSprite(_ context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Sprite)
	if err != nil || len(sources) == 0 {
		return Result{}, err
	}

	svg, err := sprite.Build(env.Fs, sources, env.Config.Sprite.Strip)
	if err != nil {
		return Result{}, err
	}
	return writeOne(env.Fs, path.Join(entry.Dest, entry.Output), svg)
}

func runData(ctx context.Context, env *Env) (Result, error) {
	entry, sources, err := env.Sources(registry.Data)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := afero.ReadFile(env.Fs, src.Path)
		if err != nil {
			return res, errors.NewIOError("read", err).WithLocation(src.Path, 0, 0)
		}

		dst := registry.DestPath(entry.Dest, src, "")
		changed, err := filter.Changed(env.Fs, data, dst)
		if err != nil {
			return res, errors.NewIOError("compare", err).WithLocation(dst, 0, 0)
		}
		if !changed {
			res.Skipped++
			continue
		}
		if err := WriteFile(env.Fs, dst, data); err != nil {
			return res, errors.NewIOError("write", err).WithLocation(dst, 0, 0)
		}
		res.Written = append(res.Written, dst)
	}
	return res, nil
}

func copyTask(category string) func(context.Context, *Env) (Result, error) {
	return func(ctx context.Context, env *Env) (Result, error) {
		entry, sources, err := env.Sources(category)
		if err != nil {
			return Result{}, err
		}

		var res Result
		for _, src := range sources {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			dst := registry.DestPath(entry.Dest, src, "")
			if err := CopyFile(env.Fs, src.Path, dst); err != nil {
				return res, errors.NewIOError("copy", err).WithLocation(src.Path, 0, 0)
			}
			res.Written = append(res.Written, dst)
		}
		return res, nil
	}
}

func writeOne(fsys afero.Fs, dst string, data []byte) (Result, error) {
	if err := WriteFile(fsys, dst, data); err != nil {
		return Result{}, errors.NewIOError("write", err).WithLocation(dst, 0, 0)
	}
	return Result{Written: []string{dst}}, nil
}
