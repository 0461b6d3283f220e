// Package sprite merges individual SVG icons into one symbol sprite.
package sprite

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/minifier"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/spf13/afero"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

// Symbol is one icon converted to a <symbol>.
type Symbol struct {
	ID      string
	ViewBox string
	Body    string
}

// String renders the symbol element.
func (s Symbol) String() string {
	var b strings.Builder
	b.WriteString(`<symbol id="`)
	b.WriteString(s.ID)
	b.WriteString(`"`)
	if s.ViewBox != "" {
		b.WriteString(` viewBox="`)
		b.WriteString(s.ViewBox)
		b.WriteString(`"`)
	}
	b.WriteString(">")
	b.WriteString(s.Body)
	b.WriteString("</symbol>")
	return b.String()
}

// Build minifies every icon, strips the given attributes and returns the
// sprite document with symbols sorted by id.
func Build(fsys afero.Fs, sources []registry.Source, strip []string) ([]byte, error) {
	m := minifier.New()
	drop := make(map[string]bool, len(strip))
	for _, a := range strip {
		drop[strings.ToLower(a)] = true
	}

	symbols := make([]Symbol, 0, len(sources))
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		id := strings.TrimSuffix(path.Base(src.Path), path.Ext(src.Path))
		if prev, ok := seen[id]; ok {
			return nil, errors.NewValidationError(fmt.Sprintf("duplicate icon id %q (also %s)", id, prev)).
				WithLocation(src.Path, 0, 0)
		}
		seen[id] = src.Path

		data, err := afero.ReadFile(fsys, src.Path)
		if err != nil {
			return nil, errors.NewIOError("read icon", err).WithLocation(src.Path, 0, 0)
		}
		sym, err := NewSymbol(m, id, data, drop)
		if err != nil {
			return nil, errors.NewCompileError("convert icon", err).WithLocation(src.Path, 0, 0)
		}
		symbols = append(symbols, sym)
	}

	sort.Slice(symbols, func(i, j int) bool { return symbols[i].ID < symbols[j].ID })
	return Assemble(symbols), nil
}

// Assemble wraps symbols in a hidden sprite document.
func Assemble(symbols []Symbol) []byte {
	var body strings.Builder
	for _, s := range symbols {
		body.WriteString(s.String())
	}

	var b bytes.Buffer
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg"`)
	if strings.Contains(body.String(), "xlink:") {
		b.WriteString(` xmlns:xlink="http://www.w3.org/1999/xlink"`)
	}
	b.WriteString(` style="display:none">`)
	b.WriteString(body.String())
	b.WriteString("</svg>")
	return b.Bytes()
}

// NewSymbol minifies one icon and converts its root <svg> into a symbol
// named id. Attributes in drop are removed from every element.
func NewSymbol(m *minify.M, id string, data []byte, drop map[string]bool) (Symbol, error) {
	min, err := m.Bytes(minifier.SVG, data)
	if err != nil {
		return Symbol{}, err
	}

	sym := Symbol{ID: id}
	l := xml.NewLexer(parse.NewInputBytes(min))
	var (
		body   strings.Builder
		depth  int
		inRoot bool
		done   bool
	)

	for !done {
		tt, raw := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != io.EOF {
				return Symbol{}, l.Err()
			}
			done = true

		case xml.StartTagToken:
			name := string(l.Text())
			if depth == 0 && !inRoot {
				if name != "svg" {
					return Symbol{}, fmt.Errorf("root element is <%s>, want <svg>", name)
				}
				inRoot = true
				continue
			}
			body.WriteString("<")
			body.WriteString(name)

		case xml.AttributeToken:
			name := string(l.Text())
			if depth == 0 {
				if name == "viewBox" {
					sym.ViewBox = unquote(l.AttrVal())
				}
				continue
			}
			if drop[strings.ToLower(name)] {
				continue
			}
			body.WriteString(" ")
			body.WriteString(name)
			if val := l.AttrVal(); val != nil {
				body.WriteString(`="`)
				body.WriteString(unquote(val))
				body.WriteString(`"`)
			}

		case xml.StartTagCloseToken:
			if depth > 0 {
				body.WriteString(">")
			}
			depth++

		case xml.StartTagCloseVoidToken:
			if depth == 0 {
				done = true
				continue
			}
			body.WriteString("/>")

		case xml.EndTagToken:
			depth--
			if depth == 0 {
				done = true
				continue
			}
			body.WriteString("</")
			body.WriteString(string(l.Text()))
			body.WriteString(">")

		case xml.StartTagPIToken, xml.StartTagClosePIToken, xml.DOCTYPEToken, xml.CommentToken:
			// prolog and comments are dropped

		default:
			if depth > 0 {
				body.Write(raw)
			}
		}
	}

	if !inRoot {
		return Symbol{}, fmt.Errorf("no <svg> element")
	}
	sym.Body = body.String()
	return sym, nil
}

func unquote(v []byte) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return string(v[1 : len(v)-1])
	}
	return string(v)
}
