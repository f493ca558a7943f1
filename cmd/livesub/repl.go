package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livesub/livesub-go/cmd/livesub/interactive"
	"github.com/livesub/livesub-go/pkg/scenario"
)

// ReplOptions holds flags for the repl command.
type ReplOptions struct {
	*RootOptions
	TraceLog string
	Retain   bool
}

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Long: `Start an interactive session against an in-memory client.

Register documents, mount and render instances, and push events by hand.
Type 'help' at the prompt for the command list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TraceLog, "trace-log", "", "write the CBOR lifecycle trace to this file")
	cmd.Flags().BoolVar(&opts.Retain, "retain", false, "deliver the last publish to new listeners")

	return cmd
}

func runRepl(cmd *cobra.Command, opts *ReplOptions) error {
	logger, closeLog, err := traceLogger(opts.RootOptions, opts.TraceLog, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	session := scenario.NewSession(scenario.ClientConfig{Retain: opts.Retain}, scenario.Options{Logger: logger})
	defer session.Close()

	shell, err := interactive.New(session)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shell.Run(ctx)
	return nil
}
