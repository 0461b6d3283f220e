package build

import (
	"context"
	"errors"
	"io/fs"
	"sync/atomic"
	"testing"
	"time"

	"github.com/conneroisu/assetflow/internal/config"
	aferrors "github.com/conneroisu/assetflow/internal/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	var order []int
	step := func(i int, err error) Step {
		return func(context.Context) error {
			order = append(order, i)
			return err
		}
	}

	t.Run("runs in order", func(t *testing.T) {
		order = nil
		require.NoError(t, Series(step(1, nil), step(2, nil), step(3, nil))(context.Background()))
		assert.Equal(t, []int{1, 2, 3}, order)
	})

	t.Run("stops at first error", func(t *testing.T) {
		order = nil
		boom := errors.New("boom")
		err := Series(step(1, nil), step(2, boom), step(3, nil))(context.Background())
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []int{1, 2}, order)
	})

	t.Run("cancelled context", func(t *testing.T) {
		order = nil
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Series(step(1, nil))(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, order)
	})
}

func TestParallel(t *testing.T) {
	t.Run("respects limit", func(t *testing.T) {
		var active, peak int32
		step := func(context.Context) error {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}

		steps := make([]Step, 8)
		for i := range steps {
			steps[i] = step
		}
		require.NoError(t, Parallel(2, steps...)(context.Background()))
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("returns first error", func(t *testing.T) {
		boom := errors.New("boom")
		err := Parallel(0,
			func(context.Context) error { return nil },
			func(context.Context) error { return boom },
		)(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestPipelineRunUnknownTask(t *testing.T) {
	p := NewPipeline(newTestEnv(t), nil)

	_, err := p.Run(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, aferrors.KindValidation, aferrors.KindOf(err))

	err = p.RunParallel(context.Background(), config.TaskStyles, "nope")
	assert.Error(t, err)
}

func TestPipelineTasksOrder(t *testing.T) {
	p := NewPipeline(newTestEnv(t), nil)

	var names []string
	for _, task := range p.Tasks() {
		names = append(names, task.Name)
	}
	assert.Equal(t, config.KnownTasks, names)
}

func TestPipelineRunMissingSource(t *testing.T) {
	p := NewPipeline(newTestEnv(t), nil)

	res, err := p.Run(context.Background(), config.TaskStyles)
	require.Error(t, err)
	assert.Equal(t, config.TaskStyles, res.Task)
	assert.Empty(t, res.Written)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, aferrors.KindIO, aferrors.KindOf(err))

	var e *aferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, config.TaskStyles, e.Task)
	assert.Equal(t, "app/scss/style.scss", e.File)
}

func TestPipelineRunEmptyGlob(t *testing.T) {
	p := NewPipeline(newTestEnv(t), nil)

	res, err := p.Run(context.Background(), config.TaskData)
	require.NoError(t, err)
	assert.Empty(t, res.Written)
}

func TestPipelineErrorsCarryTask(t *testing.T) {
	env := newTestEnv(t)
	env.Compiler = &passCompiler{
		err: aferrors.NewCompileError("undefined variable", nil).WithLocation("app/scss/style.scss", 3, 10),
	}
	writeFiles(t, env.Fs, map[string]string{"app/scss/style.scss": "a { color: $nope; }"})

	p := NewPipeline(env, nil)
	var seen []string
	p.AddCallback(func(r Result, err error) {
		if err != nil {
			seen = append(seen, r.Task)
		}
	})

	_, err := p.Run(context.Background(), config.TaskStyles)
	require.Error(t, err)
	assert.True(t, aferrors.IsCompile(err))

	var e *aferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, config.TaskStyles, e.Task)
	assert.Equal(t, "app/scss/style.scss", e.File)
	assert.Equal(t, 3, e.Line)
	assert.Equal(t, []string{config.TaskStyles}, seen)
}

func TestPipelineCallbacks(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{"app/data/site.json": `{"a":1}`})
	p := NewPipeline(env, nil)

	var results []Result
	p.AddCallback(func(r Result, err error) {
		assert.NoError(t, err)
		results = append(results, r)
	})

	_, err := p.Run(context.Background(), config.TaskData)
	require.NoError(t, err)
	first, err := env.Fs.Stat("dist/data/site.json")
	require.NoError(t, err)

	_, err = p.Run(context.Background(), config.TaskData)
	require.NoError(t, err)
	second, err := env.Fs.Stat("dist/data/site.json")
	require.NoError(t, err)
	assert.Equal(t, first.ModTime(), second.ModTime())

	require.Len(t, results, 2)
	assert.Equal(t, []string{"dist/data/site.json"}, results[0].Written)
	assert.Empty(t, results[1].Written)
	assert.Equal(t, 1, results[1].Skipped)
}

func TestBuild(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{
		"app/scss/style.scss":     "body { margin: 0; }\n",
		"app/js/main.js":          "function greet(name) { return 'hi ' + name; }\nconsole.log(greet('x'));\n",
		"app/html/index.html":     "<html><body><h1>@@site.title</h1></body></html>",
		"app/data/site.json":      `{"title": "Hello"}`,
		"app/fonts/a.woff2":       "font",
		"app/files/doc.txt":       "doc",
		"app/images/icons/x.svg":  `<svg viewBox="0 0 10 10"><path d="M0 0h10v10z" fill="red"/></svg>`,
		"app/images/static/a.ico": "ico",
		"dist/stale.txt":          "old",
	})

	p := NewPipeline(env, NewMetrics(nil))
	require.NoError(t, p.Build(context.Background(), BuildOptions{Clean: true}))

	read := func(name string) string {
		t.Helper()
		b, err := afero.ReadFile(env.Fs, name)
		require.NoError(t, err, name)
		return string(b)
	}

	assert.Contains(t, read("dist/css/style.min.css"), "margin:0")
	assert.Contains(t, read("dist/js/main.min.js"), "console.log")
	assert.Contains(t, read("dist/index.html"), "<h1>Hello</h1>")
	assert.JSONEq(t, `{"title": "Hello"}`, read("dist/data/site.json"))
	assert.Equal(t, "font", read("dist/fonts/a.woff2"))
	assert.Equal(t, "doc", read("dist/files/doc.txt"))
	assert.Equal(t, "ico", read("dist/images/a.ico"))
	assert.Contains(t, read("dist/images/sprite.svg"), `<symbol id="x"`)

	exists, err := afero.Exists(env.Fs, "dist/stale.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBuildStopsOnFailure(t *testing.T) {
	env := newTestEnv(t)
	writeFiles(t, env.Fs, map[string]string{
		"app/scss/style.scss": "body { margin: 0; }\n",
		"app/js/main.js":      "function ( {",
	})

	p := NewPipeline(env, nil)
	err := p.Build(context.Background(), BuildOptions{Precompress: []string{FormatGzip}})
	require.Error(t, err)
	assert.True(t, aferrors.IsSyntax(err))
}
