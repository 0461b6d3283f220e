package scripts

import (
	"context"
	"path"
	"testing"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, files map[string]string) (afero.Fs, []registry.Source) {
	t.Helper()
	fs := afero.NewMemMapFs()
	var sources []registry.Source
	for _, name := range []string{"app/js/a.js", "app/js/b.js", "app/js/c.js"} {
		content, ok := files[name]
		if !ok {
			continue
		}
		require.NoError(t, fs.MkdirAll(path.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
		sources = append(sources, registry.Source{Path: name, Rel: path.Base(name)})
	}
	return fs, sources
}

func TestParseTarget(t *testing.T) {
	tgt, err := ParseTarget("")
	require.NoError(t, err)
	assert.Equal(t, api.ES2016, tgt)

	tgt, err = ParseTarget("ESNext")
	require.NoError(t, err)
	assert.Equal(t, api.ESNext, tgt)

	_, err = ParseTarget("es1999")
	assert.Error(t, err)
}

func TestConcat(t *testing.T) {
	fs, sources := setup(t, map[string]string{
		"app/js/a.js": "var a = 1\nvar b = 2",
		"app/js/b.js": "var c = 3\n",
		"app/js/c.js": "var d = 4",
	})

	code, segs, err := Concat(fs, sources)
	require.NoError(t, err)
	assert.Equal(t, "var a = 1\nvar b = 2;\nvar c = 3\n;\nvar d = 4", string(code))

	require.Len(t, segs, 3)
	assert.Equal(t, 1, segs[0].firstLine)
	assert.Equal(t, 3, segs[1].firstLine)
	assert.Equal(t, 5, segs[2].firstLine)
}

func TestBundle(t *testing.T) {
	fs, sources := setup(t, map[string]string{
		"app/js/a.js": "function greet(name) {\n  return 'hi ' + name;\n}\n",
		"app/js/b.js": "console.log(greet('you'));\n",
	})

	out, err := Bundle(context.Background(), fs, sources, api.ES2016)
	require.NoError(t, err)
	assert.Contains(t, string(out), "console.log(")
	assert.NotContains(t, string(out), "  return")
	assert.Less(t, len(out), 70)
}

func TestBundleSyntaxErrorLocation(t *testing.T) {
	fs, sources := setup(t, map[string]string{
		"app/js/a.js": "var ok = 1;\nvar fine = 2;\n",
		"app/js/b.js": "var x = 1;\nfunction (\n",
	})

	_, err := Bundle(context.Background(), fs, sources, api.ES2016)
	require.Error(t, err)
	assert.True(t, errors.IsSyntax(err))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "app/js/b.js", e.File)
	assert.Equal(t, 2, e.Line)
	assert.Greater(t, e.Column, 0)
}

func TestBundleMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Bundle(context.Background(), fs, []registry.Source{{Path: "app/js/none.js"}}, api.ES2016)
	require.Error(t, err)
	assert.Equal(t, errors.KindIO, errors.KindOf(err))
}

func TestResolve(t *testing.T) {
	segs := []segment{
		{path: "a.js", firstLine: 1, lines: 3},
		{path: "b.js", firstLine: 4, lines: 2},
	}
	file, line := resolve(segs, 2)
	assert.Equal(t, "a.js", file)
	assert.Equal(t, 2, line)

	file, line = resolve(segs, 5)
	assert.Equal(t, "b.js", file)
	assert.Equal(t, 2, line)
}
