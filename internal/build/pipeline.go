package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/errors"
	"github.com/conneroisu/assetflow/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Step is one composable unit of a run.
type Step func(ctx context.Context) error

// Series runs steps in order and stops at the first error.
func Series(steps ...Step) Step {
	return func(ctx context.Context) error {
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Parallel runs steps concurrently, at most limit at a time when limit is
// positive. The first error cancels the shared context and is returned.
func Parallel(limit int, steps ...Step) Step {
	return func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		if limit > 0 {
			g.SetLimit(limit)
		}
		for _, step := range steps {
			step := step
			g.Go(func() error {
				return step(gctx)
			})
		}
		return g.Wait()
	}
}

// Callback is called after every task run.
type Callback func(result Result, err error)

// Pipeline runs named tasks against an Env.
type Pipeline struct {
	env     *Env
	tasks   map[string]Task
	metrics *Metrics
	logger  logging.Logger

	mutex     sync.RWMutex
	callbacks []Callback
}

// NewPipeline creates a pipeline with the default task set. metrics may
// be nil.
func NewPipeline(env *Env, metrics *Metrics) *Pipeline {
	return &Pipeline{
		env:     env,
		tasks:   DefaultTasks(),
		metrics: metrics,
		logger:  env.Logger.WithComponent("build"),
	}
}

// AddCallback registers cb for every task run.
func (p *Pipeline) AddCallback(cb Callback) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.callbacks = append(p.callbacks, cb)
}

// Task returns the task called name.
func (p *Pipeline) Task(name string) (Task, bool) {
	t, ok := p.tasks[name]
	return t, ok
}

// Tasks returns every task in the canonical order.
func (p *Pipeline) Tasks() []Task {
	order := make(map[string]int, len(config.KnownTasks))
	for i, name := range config.KnownTasks {
		order[name] = i
	}
	out := make([]Task, 0, len(p.tasks))
	for _, t := range p.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Name] < order[out[j].Name] })
	return out
}

// Run runs the task called name once.
func (p *Pipeline) Run(ctx context.Context, name string) (Result, error) {
	task, ok := p.tasks[name]
	if !ok {
		return Result{Task: name}, errors.NewValidationError(fmt.Sprintf("unknown task %q", name))
	}
	return p.run(ctx, task)
}

func (p *Pipeline) run(ctx context.Context, task Task) (Result, error) {
	op := logging.StartOperation(p.logger, "task:"+task.Name)
	start := time.Now()

	result, err := task.Run(ctx, p.env)
	result.Task = task.Name
	result.Duration = time.Since(start)

	if err != nil {
		err = taskError(task.Name, err)
		op.EndWithError(ctx, err, "task", task.Name)
	} else {
		p.logger.Info(ctx, "Task finished",
			"task", task.Name,
			"written", len(result.Written),
			"skipped", result.Skipped,
			"duration", result.Duration)
		op.End(ctx, "task", task.Name)
	}

	if p.metrics != nil {
		p.metrics.RecordTask(result, err)
	}

	p.mutex.RLock()
	callbacks := p.callbacks
	p.mutex.RUnlock()
	for _, cb := range callbacks {
		cb(result, err)
	}

	return result, err
}

// taskError tags err with the task name, keeping context cancellation
// recognizable.
func taskError(task string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if e, ok := err.(*errors.Error); ok {
		return e.WithTask(task)
	}
	return errors.Wrap(err, errors.KindInternal, "task failed").WithTask(task)
}

// Step returns a Step running the task called name.
func (p *Pipeline) Step(name string) Step {
	return func(ctx context.Context) error {
		_, err := p.Run(ctx, name)
		return err
	}
}

// RunParallel runs the named tasks once, concurrently.
func (p *Pipeline) RunParallel(ctx context.Context, names ...string) error {
	steps := make([]Step, 0, len(names))
	for _, name := range names {
		if _, ok := p.tasks[name]; !ok {
			return errors.NewValidationError(fmt.Sprintf("unknown task %q", name))
		}
		steps = append(steps, p.Step(name))
	}
	return Parallel(p.env.Config.Build.Concurrency, steps...)(ctx)
}

// BuildOptions controls a one-shot build.
type BuildOptions struct {
	Clean       bool
	Precompress []string
}

// Build runs Series(clean, Parallel(transform tasks), compress).
func (p *Pipeline) Build(ctx context.Context, opts BuildOptions) error {
	var steps []Step
	if opts.Clean {
		steps = append(steps, p.Step(config.TaskClean))
	}

	transforms := make([]Step, 0, len(TransformTasks))
	for _, name := range TransformTasks {
		transforms = append(transforms, p.Step(name))
	}
	steps = append(steps, Parallel(p.env.Config.Build.Concurrency, transforms...))

	if len(opts.Precompress) > 0 {
		steps = append(steps, func(ctx context.Context) error {
			_, err := p.run(ctx, Task{
				Name: "compress",
				Run: func(ctx context.Context, env *Env) (Result, error) {
					return Precompress(ctx, env.Fs, env.Config.Build.Output, opts.Precompress)
				},
			})
			return err
		})
	}

	op := logging.StartOperation(p.logger, "build")
	if err := Series(steps...)(ctx); err != nil {
		op.EndWithError(ctx, err)
		return err
	}
	op.End(ctx, "output", p.env.Config.Build.Output)
	return nil
}
