package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateExecutable checks a configured program name or path. Bare names
// are resolved through PATH by the caller; paths must be clean.
func ValidateExecutable(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("executable cannot be empty")
	}
	if i := strings.IndexAny(name, shellMeta); i >= 0 && !isWindowsSeparator(name, i) {
		return fmt.Errorf("executable %q contains forbidden character %q", name, name[i])
	}
	if strings.ContainsAny(name, "/\\") && filepath.Clean(name) != name {
		return fmt.Errorf("executable path %q is not clean", name)
	}
	return nil
}

// isWindowsSeparator allows backslashes in Windows paths.
func isWindowsSeparator(name string, i int) bool {
	return name[i] == '\\' && filepath.Separator == '\\'
}
