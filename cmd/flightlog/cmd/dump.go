/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/flightlog/pkg/query"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file> <topic>",
	Short: "Print the records of a topic",
	Long: `Print the records of one topic instance, optionally restricted to a set
of fields, a timestamp window and numeric conditions.

Conditions use =, !=, >, <, >= or <= and are combined with AND.

Examples:
  flightlog dump flight.ulg vehicle_status
  flightlog dump flight.ulg vehicle_gps_position --fields timestamp,alt --where "alt>=100"
  flightlog dump flight.ulg battery_status --start 60000000 --end 120000000 --limit 10`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		instance, _ := flags.GetUint8("instance")
		fields, _ := flags.GetStringSlice("fields")
		start, _ := flags.GetUint64("start")
		end, _ := flags.GetUint64("end")
		where, _ := flags.GetStringArray("where")
		limit, _ := flags.GetInt("limit")

		req := query.Request{
			Topic:    args[1],
			Instance: instance,
			Fields:   fields,
			Start:    start,
			End:      end,
			Limit:    limit,
		}
		for _, expr := range where {
			fq, err := query.ParseFieldQuery(expr)
			if err != nil {
				return err
			}
			req.Where = append(req.Where, fq)
		}
		if err := req.Validate(); err != nil {
			return err
		}

		log, err := parseLog(args[0])
		if err != nil {
			return err
		}

		it, err := query.NewSimpleQueryEngine(nil).Execute(cmd.Context(), log, req)
		if err != nil {
			return err
		}
		columns := it.Columns()
		rows, err := query.Collect(it)
		if err != nil {
			return err
		}
		return outputRows(cmd.OutOrStdout(), columns, rows)
	},
}

// changesCmd represents the changes command
var changesCmd = &cobra.Command{
	Use:   "changes <file> <topic> <field>",
	Short: "Print the points where a field changes value",
	Long: `Print the first record of a topic and then every record where the given
field differs from the record before it. Records with a zero timestamp are
skipped.

Example:
  flightlog changes flight.ulg vehicle_status nav_state`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		instance, _ := cmd.Flags().GetUint8("instance")

		log, err := parseLog(args[0])
		if err != nil {
			return err
		}
		topic, err := log.Topic(args[1], instance)
		if err != nil {
			return err
		}
		samples, err := topic.ValueChanges(args[2])
		if err != nil {
			return err
		}
		return outputChanges(cmd.OutOrStdout(), args[2], samples)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(changesCmd)

	dumpCmd.Flags().Uint8("instance", 0, "Topic instance (multi id)")
	dumpCmd.Flags().StringSlice("fields", nil, "Fields to print (default: all)")
	dumpCmd.Flags().Uint64("start", 0, "First timestamp in microseconds, inclusive")
	dumpCmd.Flags().Uint64("end", 0, "Last timestamp in microseconds, inclusive (0: no limit)")
	dumpCmd.Flags().StringArray("where", nil, "Condition such as \"alt>=10\" (repeatable)")
	dumpCmd.Flags().Int("limit", 0, "Maximum number of records (0: no limit)")

	changesCmd.Flags().Uint8("instance", 0, "Topic instance (multi id)")
}
