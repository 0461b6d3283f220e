// Package cmd provides the assetflow command-line interface.
//
// Configuration is read, highest priority first, from flags, from
// ASSETFLOW_* environment variables (ASSETFLOW_SERVER_PORT and so on), and
// from the config file: --config, then ASSETFLOW_CONFIG_FILE, then
// .assetflow.yml in the working directory.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/conneroisu/assetflow/internal/build"
	"github.com/conneroisu/assetflow/internal/config"
	"github.com/conneroisu/assetflow/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "assetflow",
	Short: "A front-end asset pipeline with a live-reload server",
	Long: `assetflow compiles SCSS, bundles and minifies scripts, renders HTML
partials, optimizes images, converts them to WebP, builds an SVG sprite and
copies static assets. In development it watches the sources and reloads
connected browsers.

Running assetflow without a subcommand starts the development server.

Quick Start:
  assetflow                  Build the initial assets, serve and watch
  assetflow build            Clean and build everything into dist/
  assetflow run styles html  Run individual tasks once
  assetflow tasks            List tasks with their sources and outputs`,
	SilenceUsage: true,
	RunE:         runDev,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .assetflow.yml, can also use ASSETFLOW_CONFIG_FILE)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	addServerFlags(rootCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("ASSETFLOW_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".assetflow")
	}

	viper.SetEnvPrefix("ASSETFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger described by the log section.
func newLogger(cfg *config.Config) (*logging.AssetLogger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	}), nil
}

// setup loads the configuration and builds a pipeline for the working
// directory. Task metrics are registered with reg when it is not nil.
func setup(reg prometheus.Registerer) (*build.Pipeline, *build.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	env, err := build.NewEnv(root, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid paths: %w", err)
	}
	return build.NewPipeline(env, build.NewMetrics(reg)), env, nil
}

// closeCompiler stops the Sass process if one was started.
func closeCompiler(env *build.Env) {
	if c, ok := env.Compiler.(io.Closer); ok {
		_ = c.Close()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
