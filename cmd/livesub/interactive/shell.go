// Package interactive provides the interactive command-line session of the
// livesub CLI.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"

	"github.com/livesub/livesub-go/pkg/scenario"
)

// Shell handles interactive mode. Commands are applied to a scenario
// session one at a time.
type Shell struct {
	session *scenario.Session
	out     io.Writer
	rl      *readline.Instance
}

// New creates a shell that reads commands with readline.
func New(session *scenario.Session) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "livesub> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{session: session, out: rl.Stdout(), rl: rl}, nil
}

// NewWithWriter creates a shell without a terminal. Feed it with Exec.
func NewWithWriter(session *scenario.Session, out io.Writer) *Shell {
	return &Shell{session: session, out: out}
}

// Stdout returns a writer that coordinates with the readline prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop. It returns when the user quits,
// input ends, or ctx is done.
func (s *Shell) Run(ctx context.Context) {
	if s.rl == nil {
		return
	}
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}

		if !s.Exec(line) {
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
	}
}

// Exec runs one command line. It returns false when the line asks to quit.
func (s *Shell) Exec(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "doc", "d":
		s.cmdDoc(input, args)

	case "docs":
		s.cmdDocs()

	case "mount", "m":
		s.cmdMount(args)

	case "render", "r":
		s.cmdRender(args)

	case "publish", "p":
		s.cmdPublish(args)

	case "fail", "f":
		s.cmdFail(args)

	case "disconnect":
		s.apply(scenario.Step{Disconnect: &scenario.DisconnectStep{Message: strings.Join(args, " ")}})

	case "unmount", "u":
		s.cmdUnmount(args)

	case "status", "s":
		s.cmdStatus()

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
livesub Commands:
  Documents:
    doc <name> <source>            - Register a subscription document
    docs                           - List registered documents

  Instances:
    mount <inst> [detached]        - Mount an instance (detached: outside the provider)
    render <inst> <doc> [vars] [explicit] [keep]
                                   - Render with variables, e.g. {id: 1}
    unmount <inst>                 - Unmount an instance

  Transport:
    publish <op> <data> [where]    - Push data to subscribers of an operation
    fail <op> <message>            - Push an error to subscribers
    disconnect [message]           - Fail and drop every subscription

  Other:
    status                         - Show instance results and client counters
    help                           - Show this help
    quit                           - Exit`)
}

func (s *Shell) cmdDoc(input string, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: doc <name> <source>")
		return
	}
	// Keep the source verbatim, including its spacing.
	rest := strings.TrimSpace(input[len(strings.Fields(input)[0]):])
	source := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))

	doc, err := s.session.Define(args[0], source)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Registered %s (%s)\n", args[0], doc.OperationName())
}

func (s *Shell) cmdDocs() {
	names := s.session.Documents()
	if len(names) == 0 {
		fmt.Fprintln(s.out, "No documents registered")
		return
	}
	for _, name := range names {
		fmt.Fprintf(s.out, "  %s\n", name)
	}
}

func (s *Shell) cmdMount(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: mount <inst> [detached]")
		return
	}
	detached := len(args) > 1 && strings.EqualFold(args[1], "detached")
	s.apply(scenario.Step{Mount: &scenario.MountStep{Instance: args[0], Detached: detached}})
}

func (s *Shell) cmdRender(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: render <inst> <doc> [vars] [explicit] [keep]")
		return
	}

	step := &scenario.RenderStep{Instance: args[0], Document: args[1]}
	var varArgs []string
	for _, a := range args[2:] {
		switch strings.ToLower(a) {
		case "explicit":
			step.ExplicitClient = true
		case "keep":
			step.KeepData = true
		default:
			varArgs = append(varArgs, a)
		}
	}
	if len(varArgs) > 0 {
		vars, err := parseMap(strings.Join(varArgs, " "))
		if err != nil {
			fmt.Fprintf(s.out, "Error: invalid variables: %v\n", err)
			return
		}
		step.Variables = vars
	}
	s.apply(scenario.Step{Render: step})
}

func (s *Shell) cmdPublish(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: publish <op> <data> [where]")
		return
	}

	// The data value may contain spaces; a trailing "where" splits off the
	// variable filter.
	rest := strings.Join(args[1:], " ")
	var where map[string]any
	if i := strings.LastIndex(rest, " where "); i >= 0 {
		w, err := parseMap(rest[i+len(" where "):])
		if err != nil {
			fmt.Fprintf(s.out, "Error: invalid filter: %v\n", err)
			return
		}
		where = w
		rest = rest[:i]
	}

	var data any
	if err := yaml.Unmarshal([]byte(rest), &data); err != nil {
		fmt.Fprintf(s.out, "Error: invalid data: %v\n", err)
		return
	}
	s.apply(scenario.Step{Publish: &scenario.PublishStep{Operation: args[0], Data: data, Variables: where}})
}

func (s *Shell) cmdFail(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: fail <op> <message>")
		return
	}
	s.apply(scenario.Step{Fail: &scenario.FailStep{Operation: args[0], Message: strings.Join(args[1:], " ")}})
}

func (s *Shell) cmdUnmount(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: unmount <inst>")
		return
	}
	s.apply(scenario.Step{Unmount: &scenario.UnmountStep{Instance: args[0]}})
}

func (s *Shell) cmdStatus() {
	snaps := s.session.Snapshots()
	if len(snaps) == 0 {
		fmt.Fprintln(s.out, "No rendered instances")
	}
	for _, snap := range snaps {
		fmt.Fprintf(s.out, "  %s\n", snap.String())
	}
	stats := s.session.Stats()
	fmt.Fprintf(s.out, "Client: requests=%d active=%d unsubscribes=%d\n",
		stats.Requests, stats.Active, stats.Unsubscribes)
}

func (s *Shell) apply(step scenario.Step) {
	st, err := s.session.Apply(step)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "#%d %s", st.Index, st.Summary)
	if st.Delivered != nil {
		fmt.Fprintf(s.out, " delivered=%d", *st.Delivered)
	}
	fmt.Fprintln(s.out)
	for _, snap := range st.Snapshots {
		fmt.Fprintf(s.out, "   %s\n", snap.String())
	}
}

// parseMap parses a YAML flow mapping such as {id: 1}.
func parseMap(s string) (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
