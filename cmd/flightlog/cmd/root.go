/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/config"
	"github.com/ssargent/flightlog/pkg/di"
	"github.com/ssargent/flightlog/pkg/ulog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	container *di.Container

	// cfg and logger are set by the root command before any subcommand runs.
	cfg    *config.Config
	logger = zap.NewNop()
)

// SetContainer injects the dependency container used by commands that
// start long-running services.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flightlog",
	Short: "flightlog - flight controller log decoder",
	Long: `flightlog decodes ULog flight controller logs into typed, column-oriented
topics. It prints metadata, parameters, messages and topic data, keeps a
catalog of decoded files and serves them over a REST API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = loadSettings(cmd); err != nil {
			return err
		}
		if logger, err = newLogger(cfg.Logging.Level); err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: OS-specific location)")
	flags.StringSlice("filter", nil, "Only decode data of these topics (comma-separated)")
	flags.Bool("strict", false, "Fail when decoding produced warnings")
	flags.String("format", "", "Output format: table or json")
	flags.String("log-level", "", "Logging level: debug, info, warn or error")
}

// loadSettings reads the config file, if there is one, and applies the
// global flags on top of it.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")

	settings := config.DefaultConfig()
	switch {
	case configPath != "":
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	if flags.Changed("filter") {
		settings.Parser.MessageFilter, _ = flags.GetStringSlice("filter")
	}
	if flags.Changed("strict") {
		settings.Parser.Strict, _ = flags.GetBool("strict")
	}
	if flags.Changed("format") {
		settings.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("log-level") {
		settings.Logging.Level, _ = flags.GetString("log-level")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// newLogger builds a console logger on stderr so that it never mixes with
// command output.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.DisableStacktrace = true
	zc.DisableCaller = lvl != zapcore.DebugLevel
	return zc.Build()
}

func parserConfig() ulog.ParserConfig {
	return ulog.ParserConfig{
		MessageFilter: cfg.Parser.MessageFilter,
		Logger:        logger.Named("parser"),
	}
}

// parseLog decodes the file at path with the configured filter. In strict
// mode decoding warnings fail the command.
func parseLog(path string) (*ulog.Log, error) {
	log, err := ulog.ParseFile(path, parserConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Parser.Strict {
		if err := log.Err(); err != nil {
			return nil, fmt.Errorf("%s decoded with warnings: %w", path, err)
		}
	}
	return log, nil
}
