// Package config provides configuration management for assetflow using
// Viper for loading from files, environment variables, and command-line
// flags.
//
// The configuration covers the path registry (which globs feed which task
// and where results land), per-transform options, the development server,
// watch bindings, and logging. Unset keys fall back to the standard
// app/ -> dist/ layout.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/spf13/viper"
)

// Task names accepted in dev.initial and watch bindings.
const (
	TaskClean   = "clean"
	TaskStyles  = "styles"
	TaskScripts = "scripts"
	TaskHTML    = "html"
	TaskImages  = "images"
	TaskWebP    = "webp"
	TaskSprite  = "sprite"
	TaskData    = "data"
	TaskStatic  = "static"
	TaskFonts   = "fonts"
	TaskFiles   = "files"
)

// KnownTasks lists every runnable task.
var KnownTasks = []string{
	TaskClean, TaskStyles, TaskScripts, TaskHTML, TaskImages, TaskWebP,
	TaskSprite, TaskData, TaskStatic, TaskFonts, TaskFiles,
}

type Config struct {
	Paths   map[string]registry.Entry `mapstructure:"paths" yaml:"paths"`
	Build   BuildConfig               `mapstructure:"build" yaml:"build"`
	Styles  StylesConfig              `mapstructure:"styles" yaml:"styles"`
	Scripts ScriptsConfig             `mapstructure:"scripts" yaml:"scripts"`
	HTML    HTMLConfig                `mapstructure:"html" yaml:"html"`
	Images  ImagesConfig              `mapstructure:"images" yaml:"images"`
	WebP    WebPConfig                `mapstructure:"webp" yaml:"webp"`
	Sprite  SpriteConfig              `mapstructure:"sprite" yaml:"sprite"`
	Server  ServerConfig              `mapstructure:"server" yaml:"server"`
	Dev     DevConfig                 `mapstructure:"dev" yaml:"dev"`
	Log     LogConfig                 `mapstructure:"log" yaml:"log"`
}

type BuildConfig struct {
	Output      string   `mapstructure:"output" yaml:"output"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	Precompress []string `mapstructure:"precompress" yaml:"precompress,omitempty"`
	Clean       bool     `mapstructure:"clean" yaml:"clean"`
}

type StylesConfig struct {
	Sass         string   `mapstructure:"sass" yaml:"sass"`
	IncludePaths []string `mapstructure:"include_paths" yaml:"include_paths,omitempty"`
	Targets      []string `mapstructure:"targets" yaml:"targets"`
	WebPCSS      bool     `mapstructure:"webp_css" yaml:"webp_css"`
}

type ScriptsConfig struct {
	Target string `mapstructure:"target" yaml:"target"`
}

type HTMLConfig struct {
	BasePath string                 `mapstructure:"base_path" yaml:"base_path"`
	Context  map[string]interface{} `mapstructure:"context" yaml:"context,omitempty"`
	WebP     bool                   `mapstructure:"webp" yaml:"webp"`
	Minify   bool                   `mapstructure:"minify" yaml:"minify"`
}

type ImagesConfig struct {
	Quality  int `mapstructure:"quality" yaml:"quality"`
	MaxWidth int `mapstructure:"max_width" yaml:"max_width,omitempty"`
}

type WebPConfig struct {
	Quality  int  `mapstructure:"quality" yaml:"quality"`
	Lossless bool `mapstructure:"lossless" yaml:"lossless"`
}

type SpriteConfig struct {
	Strip []string `mapstructure:"strip" yaml:"strip"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host" yaml:"host"`
	Port           int      `mapstructure:"port" yaml:"port"`
	Open           bool     `mapstructure:"open" yaml:"open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins,omitempty"`
}

// Binding ties watch globs to tasks, or to a full page reload.
type Binding struct {
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`
	Exclude  []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	Tasks    []string `mapstructure:"tasks" yaml:"tasks,omitempty"`
	Reload   bool     `mapstructure:"reload" yaml:"reload,omitempty"`
}

type DevConfig struct {
	Initial  []string      `mapstructure:"initial" yaml:"initial"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Bindings []Binding     `mapstructure:"bindings" yaml:"bindings,omitempty"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads the global viper instance into a Config, applies defaults
// for unset keys, and validates the result.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load for an explicit viper instance.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(v, &config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func applyDefaults(v *viper.Viper, config *Config) {
	if config.Build.Output == "" {
		config.Build.Output = "dist"
	}
	config.Build.Output = registry.Normalize(config.Build.Output)
	if config.Build.Concurrency <= 0 {
		config.Build.Concurrency = runtime.GOMAXPROCS(0)
	}
	if !v.IsSet("build.clean") {
		config.Build.Clean = true
	}

	// Registry: every known category exists, user entries override field
	// by field.
	defaults := registry.Defaults(config.Build.Output)
	if config.Paths == nil {
		config.Paths = make(map[string]registry.Entry, len(defaults))
	}
	for name, def := range defaults {
		config.Paths[name] = registry.Merge(def, config.Paths[name])
	}

	if config.Styles.Sass == "" {
		config.Styles.Sass = "sass"
	}
	if len(config.Styles.Targets) == 0 {
		config.Styles.Targets = []string{"chrome58", "firefox57", "safari11", "edge16"}
	}
	if !v.IsSet("styles.webp_css") {
		config.Styles.WebPCSS = true
	}

	if config.Scripts.Target == "" {
		config.Scripts.Target = "es2016"
	}

	if config.HTML.BasePath == "" {
		config.HTML.BasePath = "app/html"
	}
	if !v.IsSet("html.webp") {
		config.HTML.WebP = true
	}

	if config.Images.Quality == 0 {
		config.Images.Quality = 80
	}
	if config.WebP.Quality == 0 {
		config.WebP.Quality = 75
	}

	if len(config.Sprite.Strip) == 0 {
		config.Sprite.Strip = []string{"fill", "stroke", "style"}
	}

	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}
	if !v.IsSet("server.port") {
		config.Server.Port = 3000
	}

	if len(config.Dev.Initial) == 0 {
		config.Dev.Initial = []string{TaskStyles, TaskScripts, TaskHTML}
	}
	if config.Dev.Debounce <= 0 {
		config.Dev.Debounce = 150 * time.Millisecond
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

// Registry builds the path registry from the configured entries.
func (c *Config) Registry() (*registry.Registry, error) {
	return registry.New(c.Paths)
}
