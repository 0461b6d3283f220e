package markup

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// WrapPictures wraps every raster <img> outside a <picture> so browsers
// that support WebP load the .webp sibling:
//
//	<picture><source srcset="a.webp" type="image/webp"><img src="a.jpg"></picture>
//
// All other markup is copied byte for byte.
func WrapPictures(src []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	depth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return nil, err
			}
			return out.Bytes(), nil
		}

		raw := append([]byte(nil), z.Raw()...)
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch string(name) {
			case "picture":
				if tt == html.StartTagToken {
					depth++
				}
			case "img":
				if depth == 0 && hasAttr {
					if webp, ok := webpSource(z); ok {
						out.WriteString(`<picture><source srcset="`)
						out.WriteString(html.EscapeString(webp))
						out.WriteString(`" type="image/webp">`)
						out.Write(raw)
						out.WriteString(`</picture>`)
						continue
					}
				}
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "picture" && depth > 0 {
				depth--
			}
		}
		out.Write(raw)
	}
}

// webpSource returns the .webp counterpart of the tag's src attribute.
func webpSource(z *html.Tokenizer) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "src" {
			return webpPath(string(val))
		}
		if !more {
			return "", false
		}
	}
}

// webpPath swaps a jpg, jpeg or png extension for .webp, keeping any
// query string or fragment.
func webpPath(src string) (string, bool) {
	base, suffix := src, ""
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		base, suffix = src[:i], src[i:]
	}
	lower := strings.ToLower(base)
	for _, ext := range []string{".jpg", ".jpeg", ".png"} {
		if strings.HasSuffix(lower, ext) {
			return base[:len(base)-len(ext)] + ".webp" + suffix, true
		}
	}
	return "", false
}
