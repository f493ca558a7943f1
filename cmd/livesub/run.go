package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/livesub/livesub-go/pkg/scenario"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	TraceLog string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its snapshot trace",
		Long: `Run a scenario file against a fresh in-memory client.

After every step the instances whose state changed are re-rendered and a
snapshot of each subscription result is printed.

Example:
  livesub run testdata/switch_variables.yaml
  livesub run --format json --trace-log run.lslog scenario.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.TraceLog, "trace-log", "", "write the CBOR lifecycle trace to this file")

	return cmd
}

func runScenario(cmd *cobra.Command, opts *RunOptions, path string) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	logger, closeLog, err := traceLogger(opts.RootOptions, opts.TraceLog, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	slog.Debug("running scenario", "name", sc.Name, "steps", len(sc.Steps))
	trace, err := scenario.Run(sc, scenario.Options{Logger: logger})
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return trace.WriteJSON(cmd.OutOrStdout())
	}
	return trace.WriteText(cmd.OutOrStdout())
}
