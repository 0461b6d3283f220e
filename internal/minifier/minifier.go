// Package minifier wraps a shared tdewolff/minify registry for the text
// formats the pipeline emits.
package minifier

import (
	"regexp"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/json"
	"github.com/tdewolff/minify/v2/svg"
)

// Media types handled by New.
const (
	CSS  = "text/css"
	HTML = "text/html"
	SVG  = "image/svg+xml"
	JSON = "application/json"
)

// New returns a minifier configured for CSS, HTML, SVG and JSON. HTML
// keeps document and end tags so assembled pages stay well-formed for
// live-reload script injection.
func New() *minify.M {
	m := minify.New()
	m.AddFunc(CSS, css.Minify)
	m.Add(HTML, &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.AddFunc(SVG, svg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("[/+]json$"), json.Minify)
	return m
}

// Bytes minifies b as mediatype using a fresh registry.
func Bytes(mediatype string, b []byte) ([]byte, error) {
	return New().Bytes(mediatype, b)
}
