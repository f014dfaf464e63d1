/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and catalog directory",
	Long: `Create a configuration file with a generated API key and the catalog
directory it points to.

This command will:
- Write the config file (default: OS-specific location)
- Generate an API key for the REST API
- Create the catalog directory

Examples:
  flightlog init
  flightlog init --config ./flightlog.yaml --catalog-dir ./catalog --print-key`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// the config file does not exist yet
		return setupDefaults()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		catalogDir, _ := cmd.Flags().GetString("catalog-dir")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")
		out := cmd.OutOrStdout()

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) && !force {
			fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		settings, err := config.BootstrapConfig(configPath, catalogDir)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(settings.Catalog.Dir, 0750); err != nil {
			return fmt.Errorf("failed to create catalog dir: %w", err)
		}

		fmt.Fprintf(out, "Configuration created at %s\n", configPath)
		fmt.Fprintf(out, "Catalog directory: %s\n", settings.Catalog.Dir)
		if printKey {
			fmt.Fprintf(out, "API key: %s\n", settings.Server.APIKey)
		}
		fmt.Fprintf(out, "\nYou can now start the server with:\n")
		fmt.Fprintf(out, "  flightlog serve --config %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("catalog-dir", "", "Catalog directory (default: ./catalog)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}

// setupDefaults prepares a command that must not read a config file.
func setupDefaults() error {
	cfg = config.DefaultConfig()
	var err error
	logger, err = newLogger(cfg.Logging.Level)
	return err
}
