// Command livesub runs and inspects GraphQL subscription scenarios.
//
// Usage:
//
//	livesub <command> [flags]
//
// Commands:
//
//	run      Run a scenario file and print the snapshot trace
//	log      View, export, filter, or summarize a lifecycle trace file
//	repl     Start an interactive session
//
// Examples:
//
//	# Run a scenario and record the lifecycle trace
//	livesub run --trace-log run.lslog scenario.yaml
//
//	# Show only hook-level subscription events
//	livesub log view --layer hook run.lslog
//
//	# Drive instances by hand
//	livesub repl
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
