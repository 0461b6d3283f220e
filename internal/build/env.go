// Package build defines the asset tasks and composes them: Series and
// Parallel steps, the one-shot Build, the coalescing Runner used by
// watch mode, and Develop.
package build

import (
	"context"
	"fmt"
	"time"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/conneroisu/assetflow/internal/registry"
	"github.com/conneroisu/assetflow/internal/styles"
	"github.com/spf13/afero"
)

// ReloadKind says how browsers react after a task succeeds.
type ReloadKind int

const (
	ReloadNone ReloadKind = iota
	ReloadCSS
	ReloadPage
)

// String returns the reload kind name.
func (k ReloadKind) String() string {
	switch k {
	case ReloadCSS:
		return "css"
	case ReloadPage:
		return "page"
	default:
		return "none"
	}
}

// Task is one named unit of work over a registry category.
type Task struct {
	Name string
	// Entry is the registry category the task reads.
	Entry  string
	Stream ReloadKind
	Run    func(ctx context.Context, env *Env) (Result, error)
}

// Result summarizes a task run.
type Result struct {
	Task     string
	Written  []string
	Skipped  int
	Duration time.Duration
}

// Env is the environment shared by every task in a run.
type Env struct {
	// Fs is rooted at the project directory; all paths are
	// project-relative slash paths.
	Fs afero.Fs
	// Root is the absolute project directory, for tools that need real
	// paths.
	Root     string
	Config   *config.Config
	Registry *registry.Registry
	Logger   logging.Logger
	Compiler styles.Compiler
}

// NewEnv builds an Env for the project at root, using an afero base path
// filesystem over the OS.
func NewEnv(root string, cfg *config.Config, logger logging.Logger) (*Env, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Env{
		Fs:       afero.NewBasePathFs(afero.NewOsFs(), root),
		Root:     root,
		Config:   cfg,
		Registry: reg,
		Logger:   logger,
		Compiler: styles.NewDartSass(cfg.Styles.Sass),
	}, nil
}

// Entry returns the registry entry for category.
func (e *Env) Entry(category string) (registry.Entry, error) {
	entry, ok := e.Registry.Get(category)
	if !ok {
		return registry.Entry{}, fmt.Errorf("no registry entry for %q", category)
	}
	return entry, nil
}

// Sources expands the source globs of category.
func (e *Env) Sources(category string) (registry.Entry, []registry.Source, error) {
	entry, err := e.Entry(category)
	if err != nil {
		return entry, nil, err
	}
	sources, err := registry.Expand(e.Fs, entry)
	if err != nil {
		return entry, nil, err
	}
	return entry, sources, nil
}
