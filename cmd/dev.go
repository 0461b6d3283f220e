package cmd

import (
	"github.com/conneroisu/assetflow/internal/build"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"serve", "watch"},
	Short:   "Build the initial assets, then serve and watch",
	Long: `Run the dev.initial tasks, start the live-reload server on the output
directory and rerun tasks as their sources change. Errors are shown in the
terminal and in the browser without stopping the session.

Examples:
  assetflow dev                 # Serve on localhost:3000
  assetflow dev -p 8080 --open  # Serve on port 8080 and open a browser
  assetflow dev --host 0.0.0.0  # Listen on every interface`,
	RunE: runDev,
}

func init() {
	rootCmd.AddCommand(devCmd)
	addServerFlags(devCmd)
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	cmd.Flags().String("host", "localhost", "Host to bind to")
	cmd.Flags().Bool("open", false, "Open a browser once the server is up")
}

// bindServerFlags lets explicitly set flags override the server section.
func bindServerFlags(flags *pflag.FlagSet) {
	keys := map[string]string{
		"port": "server.port",
		"host": "server.host",
		"open": "server.open",
	}
	flags.Visit(func(f *pflag.Flag) {
		if key, ok := keys[f.Name]; ok {
			_ = viper.BindPFlag(key, f)
		}
	})
}

func runDev(cmd *cobra.Command, _ []string) error {
	bindServerFlags(cmd.Flags())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	p, env, err := setup(reg)
	if err != nil {
		return err
	}
	defer closeCompiler(env)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	return p.Develop(ctx, build.DevelopOptions{
		Out:      cmd.ErrOrStderr(),
		Gatherer: reg,
	})
}
