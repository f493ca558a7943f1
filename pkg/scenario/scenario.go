package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/version"
)

// ErrInvalidScenario is wrapped by every validation error.
var ErrInvalidScenario = errors.New("invalid scenario")

// LoadError provides details about a scenario loading error.
type LoadError struct {
	// File is the path to the file that failed to load, if any.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File != "" {
		return e.File + ": " + msg
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Scenario is a parsed scenario file.
type Scenario struct {
	// Name identifies the scenario in traces.
	Name string `yaml:"name"`

	// Version is the scenario format version. Empty means version.Current.
	Version string `yaml:"version,omitempty"`

	// Description is free-form text.
	Description string `yaml:"description,omitempty"`

	// Client configures the in-memory client.
	Client ClientConfig `yaml:"client,omitempty"`

	// Documents maps a short name to a subscription document source.
	Documents map[string]string `yaml:"documents"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	docs map[string]*graphql.Document
}

// ClientConfig configures the in-memory client of a run.
type ClientConfig struct {
	// Retain delivers the last unfiltered publish to new listeners.
	Retain bool `yaml:"retain,omitempty"`

	// MaxSubscriptions limits active subscriptions (0 uses the default).
	MaxSubscriptions int `yaml:"max_subscriptions,omitempty"`
}

// Step holds exactly one action.
type Step struct {
	Mount      *MountStep      `yaml:"mount,omitempty"`
	Render     *RenderStep     `yaml:"render,omitempty"`
	Publish    *PublishStep    `yaml:"publish,omitempty"`
	Fail       *FailStep       `yaml:"fail,omitempty"`
	Disconnect *DisconnectStep `yaml:"disconnect,omitempty"`
	Unmount    *UnmountStep    `yaml:"unmount,omitempty"`
}

// MountStep creates a component instance.
type MountStep struct {
	Instance string `yaml:"instance"`

	// Detached mounts the instance outside the client provider, so it only
	// finds a client when one is passed explicitly.
	Detached bool `yaml:"detached,omitempty"`
}

// RenderStep renders an instance with a subscription.
type RenderStep struct {
	Instance  string         `yaml:"instance"`
	Document  string         `yaml:"document"`
	Variables map[string]any `yaml:"variables,omitempty"`
	Transport map[string]any `yaml:"transport,omitempty"`

	// KeepData keeps the last data while re-subscribing.
	KeepData bool `yaml:"keep_data,omitempty"`

	// ExplicitClient passes the client in through options.
	ExplicitClient bool `yaml:"explicit_client,omitempty"`
}

// PublishStep pushes data to the subscribers of an operation.
type PublishStep struct {
	Operation string `yaml:"operation"`
	Data      any    `yaml:"data"`

	// Variables, if set, limits delivery to subscribers whose variables
	// contain every entry.
	Variables map[string]any `yaml:"variables,omitempty"`
}

// FailStep pushes an error to the subscribers of an operation.
type FailStep struct {
	Operation string         `yaml:"operation"`
	Message   string         `yaml:"message"`
	Variables map[string]any `yaml:"variables,omitempty"`
}

// DisconnectStep fails and drops every active subscription.
type DisconnectStep struct {
	Message string `yaml:"message,omitempty"`
}

// UnmountStep unmounts an instance.
type UnmountStep struct {
	Instance string `yaml:"instance"`
}

// Kind returns the name of the step's action.
func (s Step) Kind() string {
	switch {
	case s.Mount != nil:
		return "mount"
	case s.Render != nil:
		return "render"
	case s.Publish != nil:
		return "publish"
	case s.Fail != nil:
		return "fail"
	case s.Disconnect != nil:
		return "disconnect"
	case s.Unmount != nil:
		return "unmount"
	default:
		return ""
	}
}

func (s Step) actions() int {
	n := 0
	for _, set := range []bool{
		s.Mount != nil, s.Render != nil, s.Publish != nil,
		s.Fail != nil, s.Disconnect != nil, s.Unmount != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// Document returns the parsed document registered under name.
func (sc *Scenario) Document(name string) (*graphql.Document, bool) {
	doc, ok := sc.docs[name]
	return doc, ok
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	sc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{File: path, Message: "failed to parse", Cause: err}
	}
	return sc, nil
}

// Parse parses and validates a scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: fmt.Errorf("%w: %v", ErrInvalidScenario, err)}
	}

	if err := sc.validate(); err != nil {
		return nil, &LoadError{Message: "validation failed", Cause: err}
	}
	return &sc, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidScenario, fmt.Sprintf(format, args...))
}

// validate checks required fields, parses documents, and walks the steps
// tracking which instances are mounted.
func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return invalid("name is required")
	}
	if err := version.Check(sc.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if len(sc.Steps) == 0 {
		return invalid("steps list is required and must be non-empty")
	}

	sc.docs = make(map[string]*graphql.Document, len(sc.Documents))
	for name, src := range sc.Documents {
		doc, err := graphql.ParseDocument(src)
		if err != nil {
			return fmt.Errorf("%w: document %q: %w", ErrInvalidScenario, name, err)
		}
		sc.docs[name] = doc
	}

	mounted := make(map[string]bool)
	for i, step := range sc.Steps {
		if n := step.actions(); n != 1 {
			return invalid("steps[%d]: want exactly one action, got %d", i, n)
		}

		switch {
		case step.Mount != nil:
			name := step.Mount.Instance
			if name == "" {
				return invalid("steps[%d]: mount: instance is required", i)
			}
			if mounted[name] {
				return invalid("steps[%d]: mount: instance %q already mounted", i, name)
			}
			mounted[name] = true

		case step.Render != nil:
			if !mounted[step.Render.Instance] {
				return invalid("steps[%d]: render: instance %q is not mounted", i, step.Render.Instance)
			}
			if _, ok := sc.docs[step.Render.Document]; !ok {
				return invalid("steps[%d]: render: unknown document %q", i, step.Render.Document)
			}

		case step.Publish != nil:
			if step.Publish.Operation == "" {
				return invalid("steps[%d]: publish: operation is required", i)
			}

		case step.Fail != nil:
			if step.Fail.Operation == "" {
				return invalid("steps[%d]: fail: operation is required", i)
			}
			if step.Fail.Message == "" {
				return invalid("steps[%d]: fail: message is required", i)
			}

		case step.Unmount != nil:
			if !mounted[step.Unmount.Instance] {
				return invalid("steps[%d]: unmount: instance %q is not mounted", i, step.Unmount.Instance)
			}
			delete(mounted, step.Unmount.Instance)
		}
	}
	return nil
}
