package main

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/livesub/livesub-go/pkg/log"
	"github.com/livesub/livesub-go/pkg/version"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the livesub CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "livesub",
		Short:         "livesub - GraphQL subscription lifecycle tool",
		Long:          "Run subscription scenarios against an in-memory client and inspect their lifecycle traces.",
		Version:       version.Current,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log lifecycle events to stderr")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLogCommand())
	cmd.AddCommand(NewReplCommand(opts))

	return cmd
}

// traceLogger builds the lifecycle logger for a command: an optional CBOR
// trace file, plus slog output on w when verbose. The returned close
// function flushes and closes the trace file.
func traceLogger(opts *RootOptions, traceLog string, w io.Writer) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if traceLog != "" {
		fl, err := log.NewFileLogger(traceLog)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open trace log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			if err := fl.Close(); err != nil {
				slog.Error("error closing trace log", "error", err)
			}
		}
	}

	if opts.Verbose {
		handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(handler))
		loggers = append(loggers, log.NewSlogAdapter(slog.Default()))
	}

	if len(loggers) == 0 {
		return log.NoopLogger{}, closeFn, nil
	}
	return log.NewMultiLogger(loggers...), closeFn, nil
}
