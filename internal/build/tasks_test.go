package build

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/conneroisu/assetflow/internal/config"
	aferrors "github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/webp"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 7), G: uint8(y * 5), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagesAndWebP(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{
		"app/images/photos/a.png": string(testPNG(t, 32, 16)),
		"app/images/logo.svg":     `<svg xmlns="http://www.w3.org/2000/svg"><!-- logo --><rect width="10" height="10"/></svg>`,
		"app/images/icons/i.svg":  `<svg/>`,
	})
	p := NewPipeline(env, nil)
	ctx := context.Background()

	res, err := p.Run(ctx, config.TaskImages)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dist/images/photos/a.png", "dist/images/logo.svg"}, res.Written)

	svg, err := afero.ReadFile(env.Fs, "dist/images/logo.svg")
	require.NoError(t, err)
	assert.NotContains(t, string(svg), "logo -->")

	res, err = p.Run(ctx, config.TaskWebP)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/images/photos/a.webp"}, res.Written)

	f, err := env.Fs.Open("dist/images/photos/a.webp")
	require.NoError(t, err)
	defer f.Close()
	cfg, err := webp.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)

	t.Run("unchanged images are skipped", func(t *testing.T) {
		res, err := p.Run(ctx, config.TaskImages)
		require.NoError(t, err)
		assert.Empty(t, res.Written)
		assert.Equal(t, 2, res.Skipped)
	})

	t.Run("up to date outputs are skipped", func(t *testing.T) {
		res, err := p.Run(ctx, config.TaskWebP)
		require.NoError(t, err)
		assert.Empty(t, res.Written)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("touched sources are redone", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		require.NoError(t, env.Fs.Chtimes("app/images/photos/a.png", later, later))

		res, err := p.Run(ctx, config.TaskWebP)
		require.NoError(t, err)
		assert.Equal(t, []string{"dist/images/photos/a.webp"}, res.Written)
	})
}

func TestImagesCorruptSource(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{"app/images/broken.png": "not a png"})

	_, err := NewPipeline(env, nil).Run(context.Background(), config.TaskImages)
	require.Error(t, err)

	var e *aferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "app/images/broken.png", e.File)
	assert.Equal(t, config.TaskImages, e.Task)
}

func TestHTMLIncludesAndContext(t *testing.T) {
	env := newTestEnv(t)
	env.Config.HTML.Context = map[string]interface{}{"year": 2024}
	writeFiles(t, env.Fs, map[string]string{
		"app/html/index.html":           `<body>@@include('partials/nav.html', {"active": "home"})<p>@@year</p><img src="/images/a.jpg"></body>`,
		"app/html/partials/nav.html":    `<nav class="@@active">@@site.name</nav>`,
		"app/data/site.json":            `{"name": "Docs" /* comment */}`,
		"app/html/partials/ignored.txt": "x",
	})

	res, err := NewPipeline(env, nil).Run(context.Background(), config.TaskHTML)
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/index.html"}, res.Written)

	page, err := afero.ReadFile(env.Fs, "dist/index.html")
	require.NoError(t, err)
	out := string(page)
	assert.Contains(t, out, `<nav class="home">Docs</nav>`)
	assert.Contains(t, out, "<p>2024</p>")
	assert.Contains(t, out, `<picture><source srcset="/images/a.webp" type="image/webp">`)

	exists, _ := afero.Exists(env.Fs, "dist/partials/nav.html")
	assert.False(t, exists)
}

func TestHTMLMissingInclude(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{
		"app/html/index.html": "<p>\n@@include('missing.html')\n</p>",
	})

	_, err := NewPipeline(env, nil).Run(context.Background(), config.TaskHTML)
	require.Error(t, err)
	var e *aferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 2, e.Line)
}

func TestSpriteDuplicateIDs(t *testing.T) {
	env := newTestEnv(t)
	env.Registry = mustRegistry(t, env, registry.Sprite, []string{"app/images/icons/**/*.svg"})
	writeFiles(t, env.Fs, map[string]string{
		"app/images/icons/a/star.svg": `<svg viewBox="0 0 1 1"/>`,
		"app/images/icons/b/star.svg": `<svg viewBox="0 0 1 1"/>`,
	})

	_, err := NewPipeline(env, nil).Run(context.Background(), config.TaskSprite)
	require.Error(t, err)
	assert.Equal(t, aferrors.KindValidation, aferrors.KindOf(err))
}

func mustRegistry(t *testing.T, env *Env, category string, src []string) *registry.Registry {
	t.Helper()
	e := env.Config.Paths[category]
	e.Src = src
	env.Config.Paths[category] = e
	reg, err := env.Config.Registry()
	require.NoError(t, err)
	return reg
}

func TestScriptsConcatOrder(t *testing.T) {
	env := newTestEnv(t)
	env.Registry = mustRegistry(t, env, registry.Scripts, []string{"app/js/vendor.js", "app/js/*.js"})
	writeFiles(t, env.Fs, map[string]string{
		"app/js/vendor.js":  "window.first = 'vendor'",
		"app/js/a.js":       "window.second = 'a'",
		"app/js/lib.min.js": "window.never = 1",
		"app/js/zz_last.js": "window.third = 'z'",
	})

	res, err := NewPipeline(env, nil).Run(context.Background(), config.TaskScripts)
	require.NoError(t, err)
	require.Len(t, res.Written, 1)

	js, err := afero.ReadFile(env.Fs, res.Written[0])
	require.NoError(t, err)
	out := string(js)
	assert.NotContains(t, out, "never")
	v, a, z := strings.Index(out, "vendor"), strings.Index(out, `"a"`), strings.Index(out, `"z"`)
	require.True(t, v >= 0 && a >= 0 && z >= 0, out)
	assert.Less(t, v, a)
	assert.Less(t, a, z)
}

func TestClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"dist/a/b.txt": "x", "keep.txt": "y"})

	require.NoError(t, Clean(fs, "dist"))
	exists, _ := afero.DirExists(fs, "dist")
	assert.False(t, exists)
	exists, _ = afero.Exists(fs, "keep.txt")
	assert.True(t, exists)

	assert.NoError(t, Clean(fs, "dist"), "missing directory")

	for _, dir := range []string{".", "./", "../out", "/tmp/out", ""} {
		err := Clean(fs, dir)
		assert.Error(t, err, dir)
		assert.Equal(t, aferrors.KindValidation, aferrors.KindOf(err), dir)
	}
}

func TestWriteFile(t *testing.T) {
	fs := afero.NewBasePathFs(afero.NewOsFs(), t.TempDir())

	require.NoError(t, WriteFile(fs, "out/deep/file.txt", []byte("one")))
	require.NoError(t, WriteFile(fs, "out/deep/file.txt", []byte("two")))

	data, err := afero.ReadFile(fs, "out/deep/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := afero.ReadDir(fs, "out/deep")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "file.txt", entries[0].Name())
}

func TestPrecompress(t *testing.T) {
	fs := afero.NewMemMapFs()
	big := strings.Repeat("body { margin: 0; padding: 0; }\n", 200)
	writeFiles(t, fs, map[string]string{
		"dist/css/site.css": big,
		"dist/tiny.js":      "a",
		"dist/img/a.png":    big,
	})

	res, err := Precompress(context.Background(), fs, "dist", []string{FormatGzip, FormatZstd})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dist/css/site.css.gz", "dist/css/site.css.zst"}, res.Written)
	assert.Equal(t, 2, res.Skipped)

	gz, err := fs.Open("dist/css/site.css.gz")
	require.NoError(t, err)
	defer gz.Close()
	zr, err := gzip.NewReader(gz)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(zr)
	require.NoError(t, err)
	assert.Equal(t, big, buf.String())

	zst, err := afero.ReadFile(fs, "dist/css/site.css.zst")
	require.NoError(t, err)
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	plain, err := dec.DecodeAll(zst, nil)
	require.NoError(t, err)
	assert.Equal(t, big, string(plain))

	_, err = Precompress(context.Background(), fs, "dist", []string{"brotli"})
	assert.Equal(t, aferrors.KindConfig, aferrors.KindOf(err))
}
