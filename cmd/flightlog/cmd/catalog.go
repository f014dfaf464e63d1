/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/catalog"
	"go.uber.org/zap"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the catalog of decoded logs",
	Long: `The catalog keeps a summary of every added log file so that logs can be
listed and found again without decoding them. It lives in the directory
set by catalog.dir in the config file.`,
}

// catalogAddCmd represents the catalog add command
var catalogAddCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Decode log files and add them to the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(c *catalog.Catalog) error {
			var added []catalog.Entry
			for _, path := range args {
				abs, err := filepath.Abs(path)
				if err != nil {
					return err
				}
				info, err := os.Stat(abs)
				if err != nil {
					return err
				}
				log, err := parseLog(abs)
				if err != nil {
					return err
				}
				entry, err := c.Add(catalog.Summarize(abs, info.Size(), log))
				if err != nil {
					return err
				}
				logger.Info("added to catalog", zap.String("id", entry.ID), zap.String("path", abs))
				added = append(added, entry)
			}
			return outputEntries(cmd.OutOrStdout(), added)
		})
	},
}

// catalogListCmd represents the catalog list command
var catalogListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List cataloged logs, oldest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(c *catalog.Catalog) error {
			entries, err := c.List()
			if err != nil {
				return err
			}
			return outputEntries(cmd.OutOrStdout(), entries)
		})
	},
}

// catalogShowCmd represents the catalog show command
var catalogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one catalog entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(c *catalog.Catalog) error {
			entry, err := c.Get(args[0])
			if err != nil {
				return err
			}
			return outputEntry(cmd.OutOrStdout(), entry)
		})
	},
}

// catalogRemoveCmd represents the catalog rm command
var catalogRemoveCmd = &cobra.Command{
	Use:     "rm <id>...",
	Aliases: []string{"remove"},
	Short:   "Remove entries from the catalog",
	Long:    `Remove entries from the catalog. The log files themselves are not touched.`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(func(c *catalog.Catalog) error {
			for _, id := range args {
				if err := c.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogAddCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)
}

// withCatalog opens the configured catalog for the duration of fn.
func withCatalog(fn func(c *catalog.Catalog) error) error {
	if err := os.MkdirAll(cfg.Catalog.Dir, 0750); err != nil {
		return fmt.Errorf("failed to create catalog dir: %w", err)
	}
	c, err := catalog.Open(cfg.Catalog.Dir)
	if err != nil {
		return err
	}
	fnErr := fn(c)
	if err := c.Close(); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}
