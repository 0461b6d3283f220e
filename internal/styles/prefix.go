package styles

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/evanw/esbuild/pkg/api"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// ParseTargets converts browser targets such as "chrome58" or
// "safari11.1" into esbuild engines.
func ParseTargets(targets []string) ([]api.Engine, error) {
	engines := make([]api.Engine, 0, len(targets))
	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		i := strings.IndexFunc(t, unicode.IsDigit)
		if i <= 0 {
			return nil, fmt.Errorf("invalid browser target %q", t)
		}
		name, ok := engineNames[t[:i]]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q in target %q", t[:i], t)
		}
		engines = append(engines, api.Engine{Name: name, Version: t[i:]})
	}
	return engines, nil
}

// Prefix adds vendor prefixes needed by the given engines.
func Prefix(css []byte, file string, engines []api.Engine) ([]byte, error) {
	if len(engines) == 0 {
		return css, nil
	}
	result := api.Transform(string(css), api.TransformOptions{
		Loader:     api.LoaderCSS,
		Engines:    engines,
		Sourcefile: file,
		LogLevel:   api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, transformError(file, result.Errors[0])
	}
	return result.Code, nil
}

func transformError(file string, msg api.Message) *errors.Error {
	e := errors.NewCompileError(msg.Text, nil)
	if msg.Location != nil {
		return e.WithLocation(file, msg.Location.Line, msg.Location.Column+1)
	}
	return e.WithLocation(file, 0, 0)
}
