/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/config"
)

const (
	serviceName = "flightlog.service"
	unitPath    = "/etc/systemd/system/" + serviceName
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the flightlog server as a systemd service",
	Long: `Manage the flightlog REST API server as a systemd service. The service
runs "flightlog serve" with a fixed config file and restarts on failure.`,
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the flightlog systemd service",
	Long: `Install the flightlog server as a systemd service.

This will:
- Create or use existing configuration
- Generate systemd unit file
- Enable and optionally start the service

Examples:
  sudo flightlog service install
  sudo flightlog service install --catalog-dir /var/lib/flightlog --user flightlog`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupDefaults()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		catalogDir, _ := cmd.Flags().GetString("catalog-dir")
		user, _ := cmd.Flags().GetString("user")
		binary, _ := cmd.Flags().GetString("binary")
		startNow, _ := cmd.Flags().GetBool("start")
		out := cmd.OutOrStdout()

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		// systemd operations need root
		if os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges, run with: sudo flightlog service install")
		}

		var settings *config.Config
		var err error
		if config.ConfigExists(configPath) {
			if settings, err = config.LoadConfig(configPath); err != nil {
				return err
			}
			if cmd.Flags().Changed("catalog-dir") {
				settings.Catalog.Dir = catalogDir
			}
		} else {
			if settings, err = config.BootstrapConfig(configPath, catalogDir); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created new configuration at %s\n", configPath)
		}
		if cmd.Flags().Changed("port") {
			settings.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if err := config.SaveConfig(settings, configPath); err != nil {
			return err
		}

		unit := systemdUnit(settings, configPath, user, binary)
		if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}
		if err := runSystemctlCommand("enable", serviceName); err != nil {
			return fmt.Errorf("failed to enable service: %w", err)
		}
		if startNow {
			if err := runSystemctlCommand("start", serviceName); err != nil {
				return fmt.Errorf("failed to start service: %w", err)
			}
		}

		fmt.Fprintf(out, "Service: %s\n", serviceName)
		fmt.Fprintf(out, "Config: %s\n", configPath)
		fmt.Fprintf(out, "Catalog: %s\n", settings.Catalog.Dir)
		fmt.Fprintf(out, "Port: %d\n", settings.Server.Port)
		if !startNow {
			fmt.Fprintf(out, "\nTo start the service: sudo systemctl start %s\n", serviceName)
		}
		fmt.Fprintf(out, "To view logs: sudo journalctl -u %s -f\n", serviceName)
		return nil
	},
}

// systemctlCmd builds a subcommand that forwards to systemctl.
func systemctlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupDefaults()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemctlCommand(action, serviceName)
		},
	}
}

// logsCmd represents the service logs command
var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show flightlog service logs",
	Long: `Show flightlog service logs using journalctl.

Examples:
  flightlog service logs
  flightlog service logs -f  # Follow logs`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupDefaults()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")
		return runCommand("journalctl", journalArgs(follow, lines)...)
	},
}

// uninstallCmd represents the service uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the flightlog service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupDefaults()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if os.Geteuid() != 0 {
			return fmt.Errorf("service uninstall requires root privileges, run with: sudo flightlog service uninstall")
		}

		_ = runSystemctlCommand("stop", serviceName) // already stopped is fine
		if err := runSystemctlCommand("disable", serviceName); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not disable service: %v\n", err)
		}
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove unit file: %w", err)
		}
		if err := runSystemctlCommand("daemon-reload"); err != nil {
			return fmt.Errorf("failed to reload systemd: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "flightlog service uninstalled\n")
		fmt.Fprintf(cmd.OutOrStdout(), "Note: configuration and catalog were not removed\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the flightlog service"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the flightlog service"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the flightlog service"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show flightlog service status"))
	serviceCmd.AddCommand(logsCmd)
	serviceCmd.AddCommand(uninstallCmd)

	// Install command flags
	installServiceCmd.Flags().String("catalog-dir", "/var/lib/flightlog/catalog", "Catalog directory for the service")
	installServiceCmd.Flags().String("user", "flightlog", "User to run the service as")
	installServiceCmd.Flags().String("binary", "/usr/local/bin/flightlog", "Path of the installed flightlog binary")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	// Logs command flags
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
}

// systemdUnit renders the unit file for the service
func systemdUnit(settings *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=flightlog REST API server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadOnlyPaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, settings.Catalog.Dir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

// runSystemctlCommand runs a systemctl command
func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

// runCommand runs a system command and returns its error
func runCommand(command string, args ...string) error {
	cmd := exec.Command(command, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
