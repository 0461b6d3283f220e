package markup

import (
	"bytes"
	"fmt"
	"strings"
)

const includeDirective = "@@include("

// directive is one parsed @@include call.
type directive struct {
	start, end int
	target     string
	params     []byte
}

// findIncludes scans src for include directives in order.
func findIncludes(src []byte) ([]directive, error) {
	var out []directive
	offset := 0
	for {
		i := bytes.Index(src[offset:], []byte(includeDirective))
		if i < 0 {
			return out, nil
		}
		start := offset + i
		d, err := parseInclude(src, start)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineAt(src, start), err)
		}
		out = append(out, d)
		offset = d.end
	}
}

// parseInclude reads @@include('path'[, {params}]) starting at start.
func parseInclude(src []byte, start int) (directive, error) {
	d := directive{start: start}
	i := skipSpace(src, start+len(includeDirective))

	if i >= len(src) || (src[i] != '\'' && src[i] != '"') {
		return d, fmt.Errorf("@@include expects a quoted path")
	}
	quote := src[i]
	j := bytes.IndexByte(src[i+1:], quote)
	if j < 0 {
		return d, fmt.Errorf("unterminated @@include path")
	}
	d.target = strings.TrimSpace(string(src[i+1 : i+1+j]))
	if d.target == "" {
		return d, fmt.Errorf("@@include path is empty")
	}
	i = skipSpace(src, i+j+2)

	if i < len(src) && src[i] == ',' {
		i = skipSpace(src, i+1)
		end, err := matchBrace(src, i)
		if err != nil {
			return d, err
		}
		d.params = src[i:end]
		i = skipSpace(src, end)
	}

	if i >= len(src) || src[i] != ')' {
		return d, fmt.Errorf("@@include is missing a closing parenthesis")
	}
	d.end = i + 1
	return d, nil
}

// matchBrace returns the index just past the object starting at i,
// honoring strings and comments.
func matchBrace(src []byte, i int) (int, error) {
	if i >= len(src) || src[i] != '{' {
		return 0, fmt.Errorf("@@include params must be an object")
	}
	depth := 0
	for ; i < len(src); i++ {
		switch c := src[i]; c {
		case '"', '\'':
			for i++; i < len(src) && src[i] != c; i++ {
				if src[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(src) && src[i+1] == '/' {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			} else if i+1 < len(src) && src[i+1] == '*' {
				k := bytes.Index(src[i+2:], []byte("*/"))
				if k < 0 {
					return 0, fmt.Errorf("unterminated comment in @@include params")
				}
				i += k + 3
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unbalanced braces in @@include params")
}

func skipSpace(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func lineAt(src []byte, offset int) int {
	return bytes.Count(src[:offset], []byte("\n")) + 1
}
