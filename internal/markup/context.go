package markup

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/jsonc"
	"github.com/tidwall/sjson"
)

// BuildContext assembles the template context: one key per data file,
// named after its basename, followed by the configured extra values.
// Extra values win on key collisions.
func BuildContext(fsys afero.Fs, data []registry.Source, extra map[string]interface{}) ([]byte, error) {
	ctx := []byte("{}")

	for _, src := range data {
		raw, err := afero.ReadFile(fsys, src.Path)
		if err != nil {
			return nil, errors.NewIOError("read data file", err).WithLocation(src.Path, 0, 0)
		}
		doc := jsonc.ToJSON(raw)
		if !gjson.ValidBytes(doc) {
			return nil, errors.NewValidationError("invalid JSON data file").WithLocation(src.Path, 0, 0)
		}
		name := strings.TrimSuffix(path.Base(src.Path), path.Ext(src.Path))
		if ctx, err = sjson.SetRawBytes(ctx, escapeKey(name), doc); err != nil {
			return nil, fmt.Errorf("set context %q: %w", name, err)
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		var err error
		if ctx, err = sjson.SetBytes(ctx, escapeKey(k), extra[k]); err != nil {
			return nil, fmt.Errorf("set context %q: %w", k, err)
		}
	}
	return ctx, nil
}

// Overlay returns a copy of ctx with every top-level key of params set.
// params may be JSONC.
func Overlay(ctx, params []byte) ([]byte, error) {
	if len(strings.TrimSpace(string(params))) == 0 {
		return ctx, nil
	}
	doc := jsonc.ToJSON(params)
	parsed := gjson.ParseBytes(doc)
	if !gjson.ValidBytes(doc) || !parsed.IsObject() {
		return nil, fmt.Errorf("include params must be a JSON object")
	}

	out := append([]byte(nil), ctx...)
	var err error
	parsed.ForEach(func(key, value gjson.Result) bool {
		out, err = sjson.SetRawBytes(out, escapeKey(key.String()), []byte(value.Raw))
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// variableRe matches @@name and @@a.b.c references.
var variableRe = regexp.MustCompile(`@@([A-Za-z_][\w-]*(?:\.[\w-]+)*)`)

// Substitute replaces variable references found in ctx. Strings are
// inserted verbatim, other values as raw JSON. Unknown references are
// left as written.
func Substitute(src, ctx []byte) []byte {
	return variableRe.ReplaceAllFunc(src, func(ref []byte) []byte {
		name := string(ref[2:])
		if name == "include" {
			return ref
		}
		v := gjson.GetBytes(ctx, name)
		if !v.Exists() {
			return ref
		}
		if v.Type == gjson.String {
			return []byte(v.Str)
		}
		return []byte(v.Raw)
	})
}

var keyEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)

func escapeKey(k string) string {
	return keyEscaper.Replace(k)
}
