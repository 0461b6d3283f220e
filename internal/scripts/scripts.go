// Package scripts concatenates JavaScript sources and minifies the result
// with esbuild.
package scripts

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/afero"
)

const separator = ";\n"

var targets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// ParseTarget maps a name like "es2016" to an esbuild target.
func ParseTarget(name string) (api.Target, error) {
	if name == "" {
		return api.ES2016, nil
	}
	t, ok := targets[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown script target %q", name)
	}
	return t, nil
}

// segment records where one source begins in the concatenated bundle.
type segment struct {
	path      string
	firstLine int
	lines     int
}

// Concat joins sources in order, separated by ";\n". It returns the
// bundle and the line map used to resolve error locations.
func Concat(fsys afero.Fs, sources []registry.Source) ([]byte, []segment, error) {
	var (
		buf  bytes.Buffer
		segs []segment
		line = 1
	)
	for i, src := range sources {
		data, err := afero.ReadFile(fsys, src.Path)
		if err != nil {
			return nil, nil, errors.NewIOError("read script", err).WithLocation(src.Path, 0, 0)
		}
		if i > 0 {
			buf.WriteString(separator)
			line++
		}
		n := bytes.Count(data, []byte("\n")) + 1
		segs = append(segs, segment{path: src.Path, firstLine: line, lines: n})
		buf.Write(data)
		line += n - 1
	}
	return buf.Bytes(), segs, nil
}

// Bundle concatenates and minifies sources for target.
func Bundle(ctx context.Context, fsys afero.Fs, sources []registry.Source, target api.Target) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	code, segs, err := Concat(fsys, sources)
	if err != nil {
		return nil, err
	}

	result := api.Transform(string(code), api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            target,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, syntaxError(result.Errors[0], segs)
	}
	return result.Code, nil
}

func syntaxError(msg api.Message, segs []segment) *errors.Error {
	e := errors.NewSyntaxError(msg.Text, nil)
	if msg.Location == nil {
		return e
	}
	file, line := resolve(segs, msg.Location.Line)
	return e.WithLocation(file, line, msg.Location.Column+1)
}

// resolve maps a 1-based bundle line to a source file and line.
func resolve(segs []segment, line int) (string, int) {
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if line >= s.firstLine {
			return s.path, line - s.firstLine + 1
		}
	}
	return "", line
}
