// Package validation checks values that end up on a command line: the
// URL handed to the system browser opener and the Sass executable.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// shellMeta are characters a browser opener or shell could interpret.
const shellMeta = ";&|`$()<>\"'\\\n\r"

// ValidateURL accepts only plain http(s) URLs with a host, so the
// platform opener cannot be fed a protocol handler or extra arguments.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %q (only http/https allowed)", parsed.Scheme)
	}
	if i := strings.IndexAny(rawURL, shellMeta+" "); i >= 0 {
		return fmt.Errorf("URL contains forbidden character %q", rawURL[i])
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
