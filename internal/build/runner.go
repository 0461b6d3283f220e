package build

import (
	"context"
	"sync"
)

// Runner serializes reruns per task. A trigger while the task is running
// marks it pending; the pending run starts once the current one ends, so
// any burst of triggers yields at most one follow-up run. Different tasks
// run concurrently.
type Runner struct {
	run func(ctx context.Context, name string)

	mutex  sync.Mutex
	states map[string]*runState
	wg     sync.WaitGroup
}

type runState struct {
	running bool
	pending bool
}

// NewRunner returns a Runner that calls run for each execution.
func NewRunner(run func(ctx context.Context, name string)) *Runner {
	return &Runner{
		run:    run,
		states: make(map[string]*runState),
	}
}

// Trigger requests a run of name. It never blocks.
func (r *Runner) Trigger(ctx context.Context, name string) {
	r.mutex.Lock()
	st, ok := r.states[name]
	if !ok {
		st = &runState{}
		r.states[name] = st
	}
	if st.running {
		st.pending = true
		r.mutex.Unlock()
		return
	}
	st.running = true
	r.wg.Add(1)
	r.mutex.Unlock()

	go r.loop(ctx, name, st)
}

func (r *Runner) loop(ctx context.Context, name string, st *runState) {
	defer r.wg.Done()
	for {
		r.run(ctx, name)

		r.mutex.Lock()
		if st.pending && ctx.Err() == nil {
			st.pending = false
			r.mutex.Unlock()
			continue
		}
		st.running = false
		st.pending = false
		r.mutex.Unlock()
		return
	}
}

// Running reports whether name is currently executing.
func (r *Runner) Running(name string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	st, ok := r.states[name]
	return ok && st.running
}

// Wait blocks until no task is running.
func (r *Runner) Wait() {
	r.wg.Wait()
}
