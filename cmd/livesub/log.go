package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/livesub/livesub-go/cmd/livesub/commands"
)

// NewLogCommand creates the log command group.
func NewLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Inspect lifecycle trace files",
	}

	cmd.AddCommand(newLogViewCommand())
	cmd.AddCommand(newLogExportCommand())
	cmd.AddCommand(newLogFilterCommand())
	cmd.AddCommand(newLogStatsCommand())

	return cmd
}

func addFilterFlags(cmd *cobra.Command, f *commands.FilterFlags) {
	cmd.Flags().StringVar(&f.Instance, "instance", "", "filter by instance ID")
	cmd.Flags().StringVar(&f.Layer, "layer", "", "filter by layer (component, hook, transport)")
	cmd.Flags().StringVar(&f.Category, "category", "", "filter by category (state, subscription, error)")
	cmd.Flags().StringVar(&f.Action, "action", "", "filter by subscription action (subscribe, unsubscribe, data, error, ignored)")
	cmd.Flags().StringVar(&f.Operation, "operation", "", "filter by operation name")
	cmd.Flags().StringVar(&f.TimeStart, "since", "", "filter by start time (RFC3339)")
	cmd.Flags().StringVar(&f.TimeEnd, "until", "", "filter by end time (RFC3339)")
}

func newLogViewCommand() *cobra.Command {
	var flags commands.FilterFlags

	cmd := &cobra.Command{
		Use:   "view <file>",
		Short: "View a trace file in human-readable format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			return commands.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(cmd, &flags)
	return cmd
}

func newLogExportCommand() *cobra.Command {
	var flags commands.FilterFlags
	var format string

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a trace file to JSONL or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			return commands.RunExport(args[0], format, filter, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&format, "as", "jsonl", "export format (jsonl, csv)")
	addFilterFlags(cmd, &flags)
	return cmd
}

func newLogFilterCommand() *cobra.Command {
	var flags commands.FilterFlags
	var output string

	cmd := &cobra.Command{
		Use:   "filter <file>",
		Short: "Write the matching events of a trace file to a new file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.Build()
			if err != nil {
				return err
			}
			n, err := commands.RunFilter(args[0], output, filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (required)")
	_ = cmd.MarkFlagRequired("output")
	addFilterFlags(cmd, &flags)
	return cmd
}

func newLogStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Show statistics about a trace file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return commands.RunStats(args[0], cmd.OutOrStdout())
		},
	}
}
