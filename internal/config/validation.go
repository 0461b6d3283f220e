package config

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/conneroisu/assetflow/internal/validation"
)

// ValidationError represents a configuration validation error with suggestions
type ValidationError struct {
	Field       string
	Value       interface{}
	Message     string
	Suggestions []string
}

func (ve *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: %s", ve.Field, ve.Message)
	if len(ve.Suggestions) > 0 {
		msg += " (" + strings.Join(ve.Suggestions, "; ") + ")"
	}
	return msg
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := registry.ValidateDir(config.Build.Output); err != nil || config.Build.Output == "." {
		return &ValidationError{
			Field:       "build.output",
			Value:       config.Build.Output,
			Message:     "must be a relative directory inside the project",
			Suggestions: []string{"use a directory such as dist"},
		}
	}

	for _, name := range config.Build.Precompress {
		if name != "gzip" && name != "zstd" {
			return &ValidationError{
				Field:       "build.precompress",
				Value:       name,
				Message:     fmt.Sprintf("unknown encoding %q", name),
				Suggestions: []string{"supported encodings are gzip and zstd"},
			}
		}
	}

	for name, entry := range config.Paths {
		if err := entry.Validate(); err != nil {
			return &ValidationError{Field: "paths." + name, Value: entry, Message: err.Error()}
		}
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return err
	}

	if err := validation.ValidateExecutable(config.Styles.Sass); err != nil {
		return &ValidationError{
			Field:       "styles.sass",
			Value:       config.Styles.Sass,
			Message:     err.Error(),
			Suggestions: []string{"use the name of the sass binary or a clean path to it"},
		}
	}

	for field, q := range map[string]int{"images.quality": config.Images.Quality, "webp.quality": config.WebP.Quality} {
		if q < 1 || q > 100 {
			return &ValidationError{Field: field, Value: q, Message: "must be between 1 and 100"}
		}
	}
	if config.Images.MaxWidth < 0 {
		return &ValidationError{Field: "images.max_width", Value: config.Images.MaxWidth, Message: "must not be negative"}
	}

	if err := validateTasks("dev.initial", config.Dev.Initial); err != nil {
		return err
	}
	for i, b := range config.Dev.Bindings {
		field := fmt.Sprintf("dev.bindings[%d]", i)
		if len(b.Patterns) == 0 {
			return &ValidationError{Field: field, Message: "no patterns"}
		}
		for _, p := range append(append([]string{}, b.Patterns...), b.Exclude...) {
			if !doublestar.ValidatePattern(p) {
				return &ValidationError{Field: field, Value: p, Message: "invalid glob"}
			}
		}
		if !b.Reload && len(b.Tasks) == 0 {
			return &ValidationError{
				Field:       field,
				Message:     "binding has neither tasks nor reload",
				Suggestions: []string{"set tasks: [...] or reload: true"},
			}
		}
		if err := validateTasks(field+".tasks", b.Tasks); err != nil {
			return err
		}
	}

	switch config.Log.Format {
	case "text", "json":
	default:
		return &ValidationError{Field: "log.format", Value: config.Log.Format, Message: "must be text or json"}
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Allow 0 for system-assigned ports in testing
	if config.Port < 0 || config.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Value:   config.Port,
			Message: fmt.Sprintf("port %d is not in valid range 0-65535", config.Port),
		}
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", "/"}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return &ValidationError{
				Field:   "server.host",
				Value:   config.Host,
				Message: fmt.Sprintf("host contains invalid character %q", char),
			}
		}
	}

	return nil
}

func validateTasks(field string, names []string) error {
	for _, name := range names {
		if !IsKnownTask(name) {
			return &ValidationError{
				Field:       field,
				Value:       name,
				Message:     fmt.Sprintf("unknown task %q", name),
				Suggestions: []string{"known tasks: " + strings.Join(KnownTasks, ", ")},
			}
		}
	}
	return nil
}

// IsKnownTask reports whether name is a runnable task.
func IsKnownTask(name string) bool {
	for _, known := range KnownTasks {
		if known == name {
			return true
		}
	}
	return false
}
