package build

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/notify"
	"github.com/conneroisu/assetflow/internal/server"
	"github.com/conneroisu/assetflow/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// DevelopOptions configures a watch session.
type DevelopOptions struct {
	// Out receives the terminal error boxes; nil means stderr.
	Out io.Writer
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// Develop runs the initial tasks, then serves the output directory and
// reruns tasks as their sources change until ctx is done. Task failures
// are reported and never end the session.
func (p *Pipeline) Develop(ctx context.Context, opts DevelopOptions) error {
	env := p.env
	cfg := env.Config
	logger := p.logger

	srv := server.New(cfg, env.Fs, env.Logger, opts.Gatherer)
	notifier := notify.New(env.Logger, opts.Out, srv.Hub())
	bindings := Bindings(cfg)
	p.AddCallback(p.reporter(ctx, notifier, bindings))

	if err := p.RunParallel(ctx, cfg.Dev.Initial...); err != nil && ctx.Err() == nil {
		logger.Warn(ctx, err, "Initial build finished with errors")
	}

	runner := NewRunner(func(ctx context.Context, name string) {
		// Failures reach the notifier through the callback.
		_, _ = p.Run(ctx, name)
	})

	fw, err := watcher.NewFileWatcher(env.Root, cfg.Dev.Debounce, env.Logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoGitFilter)
	fw.AddFilter(watcher.NoNodeModulesFilter)
	fw.AddFilter(watcher.NoTempFilter)
	if err := fw.AddRecursive("."); err != nil {
		return err
	}

	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		d := Match(bindings, events)
		for _, name := range d.Tasks {
			logger.Debug(ctx, "Change triggered task", "task", name)
			runner.Trigger(ctx, name)
		}
		if d.Reload {
			notifier.Reload(d.ReloadPath)
		}
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return fw.Start(gctx)
	})
	g.Go(func() error {
		return srv.Start(gctx)
	})

	err = g.Wait()
	runner.Wait()
	return err
}

// reporter turns task outcomes into browser messages. Page writes that a
// reload binding covers are left to the watcher so the browser reloads
// once.
func (p *Pipeline) reporter(ctx context.Context, n *notify.Notifier, bindings []config.Binding) Callback {
	output := p.env.Config.Build.Output
	return func(result Result, err error) {
		if err != nil {
			n.Failed(ctx, result.Task, err)
			return
		}
		task, ok := p.tasks[result.Task]
		if !ok {
			return
		}
		switch task.Stream {
		case ReloadCSS:
			n.Succeeded(result.Task, server.MessageCSS, cssPath(output, result.Written))
		case ReloadPage:
			if len(result.Written) == 0 || watchedReload(bindings, result.Written) {
				n.Succeeded(result.Task, "", "")
				return
			}
			n.Succeeded(result.Task, server.MessageReload, "")
		default:
			n.Succeeded(result.Task, "", "")
		}
	}
}

// watchedReload reports whether a reload binding matches any of the
// written files.
func watchedReload(bindings []config.Binding, written []string) bool {
	events := make([]watcher.ChangeEvent, 0, len(written))
	for _, w := range written {
		events = append(events, watcher.ChangeEvent{Type: watcher.EventTypeModified, Path: w})
	}
	return Match(bindings, events).Reload
}

// cssPath returns the first written stylesheet as a URL path under the
// output directory.
func cssPath(output string, written []string) string {
	for _, w := range written {
		if path.Ext(w) != ".css" {
			continue
		}
		rel := strings.TrimPrefix(w, output)
		return "/" + strings.TrimPrefix(rel, "/")
	}
	return ""
}
