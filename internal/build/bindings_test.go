package build

import (
	"testing"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/watcher"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func events(paths ...string) []watcher.ChangeEvent {
	out := make([]watcher.ChangeEvent, len(paths))
	for i, p := range paths {
		out[i] = watcher.ChangeEvent{Type: watcher.EventTypeModified, Path: p}
	}
	return out
}

func TestDefaultBindings(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	bindings := Bindings(cfg)

	tests := []struct {
		name   string
		paths  []string
		tasks  []string
		reload bool
	}{
		{name: "partial stylesheet", paths: []string{"app/scss/base/_reset.scss"}, tasks: []string{config.TaskStyles}},
		{name: "script", paths: []string{"app/js/main.js"}, tasks: []string{config.TaskScripts}},
		{name: "minified script excluded", paths: []string{"app/js/vendor/x.min.js"}},
		{name: "markdown partial", paths: []string{"app/html/partials/intro.md"}, tasks: []string{config.TaskHTML}},
		{name: "data feeds html and data", paths: []string{"app/data/site.json"}, tasks: []string{config.TaskData, config.TaskHTML}},
		{name: "raster image", paths: []string{"app/images/a.jpg"}, tasks: []string{config.TaskImages, config.TaskWebP}},
		{name: "icon", paths: []string{"app/images/icons/star.svg"}, tasks: []string{config.TaskSprite}},
		{name: "font", paths: []string{"app/fonts/a.woff2"}, tasks: []string{config.TaskFonts}},
		{name: "output page", paths: []string{"dist/index.html"}, reload: true},
		{name: "unrelated", paths: []string{"README.md"}},
		{
			name:  "batch is deduplicated",
			paths: []string{"app/scss/a.scss", "app/scss/b.scss", "app/js/main.js"},
			tasks: []string{config.TaskScripts, config.TaskStyles},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Match(bindings, events(tt.paths...))
			assert.Equal(t, tt.tasks, d.Tasks)
			assert.Equal(t, tt.reload, d.Reload)
		})
	}
}

func TestConfiguredBindingsReplaceDefaults(t *testing.T) {
	cfg, err := config.LoadFrom(viper.New())
	require.NoError(t, err)
	cfg.Dev.Bindings = []config.Binding{
		{Patterns: []string{"theme/**/*.scss"}, Tasks: []string{config.TaskStyles}},
		{Patterns: []string{"templates/**"}, Exclude: []string{"templates/draft/**"}, Reload: true},
	}
	bindings := Bindings(cfg)

	assert.Empty(t, Match(bindings, events("app/scss/a.scss")).Tasks)
	assert.Equal(t, []string{config.TaskStyles}, Match(bindings, events("theme/x/y.scss")).Tasks)

	d := Match(bindings, events("templates/draft/a.html", "templates/b.html"))
	assert.True(t, d.Reload)
	assert.Equal(t, "templates/b.html", d.ReloadPath)
}
