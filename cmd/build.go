package cmd

import (
	"fmt"
	"time"

	"github.com/conneroisu/assetflow/internal/build"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Clean the output directory and build every asset",
	Long: `Run clean, then every transform task in parallel, then optional
precompression. The first failing task cancels the others and the command
exits non-zero.

Examples:
  assetflow build                        # Clean and build into dist/
  assetflow build --no-clean             # Keep existing output
  assetflow build --precompress gzip,zstd # Also write .gz and .zst siblings`,
	RunE: runBuild,
}

var buildNoClean bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildNoClean, "no-clean", false, "Skip cleaning the output directory")
	buildCmd.Flags().StringSlice("precompress", nil, "Precompression formats to write (gzip, zstd)")
	_ = viper.BindPFlag("build.precompress", buildCmd.Flags().Lookup("precompress"))
}

func runBuild(cmd *cobra.Command, _ []string) error {
	startTime := time.Now()

	p, env, err := setup(nil)
	if err != nil {
		return err
	}
	defer closeCompiler(env)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	opts := build.BuildOptions{
		Clean:       env.Config.Build.Clean && !buildNoClean,
		Precompress: env.Config.Build.Precompress,
	}
	if err := p.Build(ctx, opts); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Built %s in %s\n", env.Config.Build.Output, time.Since(startTime).Round(time.Millisecond))
	return nil
}
