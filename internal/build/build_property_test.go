//go:build property

package build

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRunnerProperties checks the coalescing guarantees under random
// trigger bursts.
func TestRunnerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("a task never overlaps itself", prop.ForAll(
		func(triggers []int) bool {
			names := []string{"styles", "scripts", "html"}
			var mu sync.Mutex
			active := map[string]int{}
			overlap := false

			r := NewRunner(func(ctx context.Context, name string) {
				mu.Lock()
				active[name]++
				if active[name] > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(time.Millisecond)

				mu.Lock()
				active[name]--
				mu.Unlock()
			})

			for _, i := range triggers {
				r.Trigger(context.Background(), names[i%len(names)])
			}
			r.Wait()
			return !overlap
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.Property("a burst during a run adds one follow-up", prop.ForAll(
		func(burst int) bool {
			var runs int32
			release := make(chan struct{})
			started := make(chan struct{}, 1)
			var once sync.Once

			r := NewRunner(func(ctx context.Context, name string) {
				atomic.AddInt32(&runs, 1)
				once.Do(func() {
					started <- struct{}{}
					<-release
				})
			})

			r.Trigger(context.Background(), "styles")
			<-started
			for i := 0; i < burst; i++ {
				r.Trigger(context.Background(), "styles")
			}
			close(release)
			r.Wait()

			want := int32(1)
			if burst > 0 {
				want = 2
			}
			return atomic.LoadInt32(&runs) == want
		},
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}

// TestSeriesProperties checks that Series runs a prefix of its steps.
func TestSeriesProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)

	properties := gopter.NewProperties(parameters)

	properties.Property("series stops right after the failing step", prop.ForAll(
		func(n, fail int) bool {
			ran := 0
			steps := make([]Step, n)
			for i := range steps {
				i := i
				steps[i] = func(context.Context) error {
					ran++
					if i == fail {
						return context.DeadlineExceeded
					}
					return nil
				}
			}
			err := Series(steps...)(context.Background())
			if fail < n {
				return err != nil && ran == fail+1
			}
			return err == nil && ran == n
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 25),
	))

	properties.TestingRun(t)
}
