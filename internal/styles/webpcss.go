package styles

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// rasterURLRe matches url() references to jpg, jpeg or png files,
// keeping any query or fragment.
var rasterURLRe = regexp.MustCompile(`(?i)url\(\s*(['"]?)([^'")]+?)\.(?:jpe?g|png)((?:[?#][^'")]*)?)(['"]?)\s*\)`)

// groupingRules are the at-rules whose nested rulesets can be repeated
// with a .webp ancestor selector.
var groupingRules = map[string]bool{
	"@media":     true,
	"@supports":  true,
	"@container": true,
	"@layer":     true,
}

type webpRule struct {
	wrap      []string
	selectors []string
	decls     []string
}

// AddWebPRules appends a companion rule for every ruleset that references
// a jpg or png through url(). The companion is scoped under a .webp class
// on an ancestor and points at the .webp sibling of each image. The input
// is left untouched and the companions follow it so they win the cascade.
func AddWebPRules(src []byte) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(src), false)

	var (
		rules    []webpRule
		wrap     []string
		skip     int
		selector []string
		current  *webpRule
	)

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err != nil && err != io.EOF {
				return nil, fmt.Errorf("parse css: %w", err)
			}
			return appendWebPRules(src, rules), nil

		case css.BeginAtRuleGrammar:
			name := strings.ToLower(string(data))
			if skip > 0 || !groupingRules[name] {
				skip++
				continue
			}
			wrap = append(wrap, name+" "+strings.TrimSpace(tokensString(p.Values())))

		case css.EndAtRuleGrammar:
			if skip > 0 {
				skip--
				continue
			}
			if len(wrap) > 0 {
				wrap = wrap[:len(wrap)-1]
			}

		case css.QualifiedRuleGrammar:
			selector = append(selector, splitSelectors(tokensString(p.Values()))...)

		case css.BeginRulesetGrammar:
			selector = append(selector, splitSelectors(tokensString(p.Values()))...)
			if skip == 0 {
				current = &webpRule{
					wrap:      append([]string(nil), wrap...),
					selectors: selector,
				}
			}
			selector = nil

		case css.DeclarationGrammar:
			if current == nil {
				continue
			}
			value := tokensString(p.Values())
			if rasterURLRe.MatchString(value) {
				current.decls = append(current.decls,
					string(data)+":"+rasterURLRe.ReplaceAllString(value, "url(${1}${2}.webp${3}${4})"))
			}

		case css.EndRulesetGrammar:
			if current != nil && len(current.decls) > 0 {
				rules = append(rules, *current)
			}
			current = nil
		}
	}
}

func appendWebPRules(src []byte, rules []webpRule) []byte {
	if len(rules) == 0 {
		return src
	}
	var b bytes.Buffer
	b.Write(src)
	if len(src) > 0 && src[len(src)-1] != '\n' {
		b.WriteByte('\n')
	}
	for _, r := range rules {
		for _, w := range r.wrap {
			b.WriteString(w)
			b.WriteString("{")
		}
		scoped := make([]string, len(r.selectors))
		for i, s := range r.selectors {
			scoped[i] = ".webp " + s
		}
		b.WriteString(strings.Join(scoped, ","))
		b.WriteString("{")
		b.WriteString(strings.Join(r.decls, ";"))
		b.WriteString("}")
		b.WriteString(strings.Repeat("}", len(r.wrap)))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func tokensString(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}

// splitSelectors splits a selector list on commas outside parentheses and
// brackets.
func splitSelectors(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(s[start:i]); part != "" {
					out = append(out, part)
				}
				start = i + 1
			}
		}
	}
	if part := strings.TrimSpace(s[start:]); part != "" {
		out = append(out, part)
	}
	return out
}
