/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/ulog"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Show header, info messages and decode statistics",
	Long: `Show the file header, software version, info messages and what the
decoder found in the file.

Example:
  flightlog info flight.ulg
  flightlog info flight.ulg --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := parseLog(args[0])
		if err != nil {
			return err
		}
		return outputInfo(cmd.OutOrStdout(), args[0], log)
	},
}

// paramsCmd represents the params command
var paramsCmd = &cobra.Command{
	Use:   "params <file>",
	Short: "List parameters",
	Long: `List the parameter values in effect when logging started. With
--changes the parameters set in flight are listed as well.

Example:
  flightlog params flight.ulg --changes`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, _ := cmd.Flags().GetBool("changes")

		log, err := parseLog(args[0])
		if err != nil {
			return err
		}
		return outputParams(cmd.OutOrStdout(), log, changes)
	},
}

// messagesCmd represents the messages command
var messagesCmd = &cobra.Command{
	Use:   "messages <file>",
	Short: "List logged text messages",
	Long: `List the text messages logged by the flight controller. --level keeps
messages at or above a severity, given as a digit 0-7 or a name such as
WARNING.

Example:
  flightlog messages flight.ulg --level warning`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("level")
		maxLevel, err := parseLevel(levelFlag)
		if err != nil {
			return err
		}

		log, err := parseLog(args[0])
		if err != nil {
			return err
		}

		var messages []ulog.LogMessage
		for _, m := range log.Messages() {
			if m.Level <= maxLevel {
				messages = append(messages, m)
			}
		}
		return outputMessages(cmd.OutOrStdout(), messages)
	},
}

// topicsCmd represents the topics command
var topicsCmd = &cobra.Command{
	Use:   "topics <file>",
	Short: "List decoded topics",
	Long: `List every decoded topic instance with its record and field counts.

Example:
  flightlog topics flight.ulg
  flightlog topics flight.ulg --filter vehicle_status,vehicle_gps_position`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := parseLog(args[0])
		if err != nil {
			return err
		}
		return outputTopics(cmd.OutOrStdout(), log)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(topicsCmd)

	paramsCmd.Flags().Bool("changes", false, "Also list parameters changed in flight")
	messagesCmd.Flags().String("level", "7", "Lowest severity to show, 0 (emergency) to 7 (debug)")
}

// parseLevel accepts a level digit or its name and returns the level byte.
func parseLevel(s string) (byte, error) {
	if len(s) == 1 && s[0] >= '0' && s[0] <= '7' {
		return s[0], nil
	}
	for l := byte('0'); l <= '7'; l++ {
		if strings.EqualFold(ulog.LevelName(l), s) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("invalid level %q", s)
}
