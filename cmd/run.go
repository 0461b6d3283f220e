package cmd

import (
	"context"
	"fmt"

	"github.com/conneroisu/assetflow/internal/build"
	"github.com/conneroisu/assetflow/internal/config"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <task>...",
	Short: "Run named tasks once, in parallel",
	Long: `Run one or more tasks once without watching. When clean is named
it runs first and the other tasks start after it finishes.

Examples:
  assetflow run styles           # Compile the stylesheet bundle
  assetflow run images webp      # Optimize images and write WebP copies
  assetflow run clean styles     # Empty the output, then compile styles`,
	Args:      cobra.MinimumNArgs(1),
	ValidArgs: config.KnownTasks,
	RunE:      runTasks,
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the output directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTasks(cmd, []string{config.TaskClean})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(cleanCmd)
}

func runTasks(cmd *cobra.Command, names []string) error {
	p, env, err := setup(nil)
	if err != nil {
		return err
	}
	defer closeCompiler(env)

	for _, name := range names {
		if _, ok := p.Task(name); !ok {
			return fmt.Errorf("unknown task %q (see assetflow tasks)", name)
		}
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	clean, rest := splitClean(names)
	var steps []build.Step
	if clean {
		steps = append(steps, p.Step(config.TaskClean))
	}
	if len(rest) > 0 {
		steps = append(steps, func(ctx context.Context) error {
			return p.RunParallel(ctx, rest...)
		})
	}
	return build.Series(steps...)(ctx)
}

// splitClean pulls clean out of names so it can run before the rest.
func splitClean(names []string) (bool, []string) {
	clean := false
	rest := make([]string, 0, len(names))
	for _, name := range names {
		if name == config.TaskClean {
			clean = true
			continue
		}
		rest = append(rest, name)
	}
	return clean, rest
}
