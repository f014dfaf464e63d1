/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/api"
	"github.com/ssargent/flightlog/pkg/config"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [file]...",
	Short: "Start the REST API server",
	Long: `Start the flightlog REST API server. Files given as arguments are loaded
before the server starts; more can be loaded through the API. Logs in the
catalog can be opened by id.

Requests under /api/v1 need the X-API-Key header when server.api_key is set.

POST /api/v1/logs reads any path the server process can open. Set
catalog.allowed_roots to restrict it to the listed directories. Files given
on the command line are not restricted.

Examples:
  flightlog serve
  flightlog serve --port 9000 flight.ulg`,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg, args)
	},
}

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap configuration if needed and start the server",
	Long: `Create a configuration file with a generated API key if none exists,
then start the REST API server. This is the recommended way to get the
server running.

Examples:
  flightlog up
  flightlog up --config ./flightlog.yaml --port 9000`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if !config.ConfigExists(configPath) {
			if _, err := config.BootstrapConfig(configPath, ""); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration created at %s\n", configPath)
			if err := cmd.Flags().Set("config", configPath); err != nil {
				return err
			}
		}
		return rootCmd.PersistentPreRunE(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		applyServerFlags(cmd, cfg)
		return runServer(cmd, cfg, nil)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(upCmd)

	for _, c := range []*cobra.Command{serveCmd, upCmd} {
		c.Flags().IntP("port", "p", 8080, "Port to listen on")
		c.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	}
}

// applyServerFlags overrides the config with flags set on the command line.
func applyServerFlags(cmd *cobra.Command, settings *config.Config) {
	if cmd.Flags().Changed("port") {
		settings.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		settings.Server.Bind, _ = cmd.Flags().GetString("bind")
	}
}

// runServer creates the log service, loads files and serves until
// interrupted.
func runServer(cmd *cobra.Command, settings *config.Config, files []string) error {
	if container == nil {
		return fmt.Errorf("dependency container not initialized")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := api.NewMetrics(reg)
	service, err := container.GetLogServiceFactory().CreateLogService(
		settings.Catalog.Dir, parserConfig(), metrics, logger.Named("service"))
	if err != nil {
		return err
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Error("failed to close log service", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	for _, path := range files {
		loaded, err := service.Load(ctx, path, false)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Loaded %s as %s\n", path, loaded.ID)
	}

	serverConfig := api.ServerConfig{
		Bind:         settings.Server.Bind,
		Port:         settings.Server.Port,
		APIKey:       settings.Server.APIKey,
		Gatherer:     reg,
		AllowedRoots: settings.Catalog.AllowedRoots,
	}
	fmt.Fprintf(out, "Starting flightlog server on %s\n", serverConfig.Addr())
	fmt.Fprintf(out, "Catalog directory: %s\n", settings.Catalog.Dir)

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, service, metrics, serverConfig, logger.Named("api"))
}
