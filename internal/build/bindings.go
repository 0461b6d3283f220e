package build

import (
	"path"
	"sort"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/conneroisu/assetflow/internal/watcher"
)

// DefaultBindings derives watch bindings from the registry: each
// category's watch globs rerun its task, and served HTML reloads the page.
func DefaultBindings(cfg *config.Config) []config.Binding {
	bind := func(category string, tasks ...string) config.Binding {
		e := cfg.Paths[category]
		return config.Binding{Patterns: e.WatchPatterns(), Exclude: e.Exclude, Tasks: tasks}
	}

	return []config.Binding{
		bind(registry.Styles, config.TaskStyles),
		bind(registry.Scripts, config.TaskScripts),
		bind(registry.HTML, config.TaskHTML),
		bind(registry.Images, config.TaskImages, config.TaskWebP),
		bind(registry.Sprite, config.TaskSprite),
		bind(registry.Data, config.TaskData),
		bind(registry.Static, config.TaskStatic),
		bind(registry.Fonts, config.TaskFonts),
		bind(registry.Files, config.TaskFiles),
		{Patterns: []string{path.Join(cfg.Build.Output, "*.html")}, Reload: true},
	}
}

// Bindings returns the configured bindings, or the defaults when none
// are set.
func Bindings(cfg *config.Config) []config.Binding {
	if len(cfg.Dev.Bindings) > 0 {
		return cfg.Dev.Bindings
	}
	return DefaultBindings(cfg)
}

// Dispatch is what a batch of changes asks for.
type Dispatch struct {
	// Tasks to rerun, sorted and unique.
	Tasks []string
	// Reload is set when a reload binding matched; ReloadPath is the
	// first matching file.
	Reload     bool
	ReloadPath string
}

// Match maps changed files to the tasks and reloads their bindings ask
// for.
func Match(bindings []config.Binding, events []watcher.ChangeEvent) Dispatch {
	var d Dispatch
	seen := make(map[string]bool)

	for _, ev := range events {
		for _, b := range bindings {
			e := registry.Entry{Exclude: b.Exclude}
			if !e.Matches(b.Patterns, ev.Path) {
				continue
			}
			if b.Reload && !d.Reload {
				d.Reload = true
				d.ReloadPath = ev.Path
			}
			for _, t := range b.Tasks {
				if !seen[t] {
					seen[t] = true
					d.Tasks = append(d.Tasks, t)
				}
			}
		}
	}
	sort.Strings(d.Tasks)
	return d
}
