package scenario

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Trace is the record of one scenario run.
type Trace struct {
	Name   string      `json:"name"`
	Steps  []StepTrace `json:"steps"`
	Client ClientStats `json:"client"`
}

// StepTrace records one step and the instance snapshots taken after it
// settled.
type StepTrace struct {
	Index   int    `json:"step"`
	Kind    string `json:"kind"`
	Summary string `json:"summary"`

	// Delivered is the number of subscribers reached by a publish, fail, or
	// disconnect step.
	Delivered *int `json:"delivered,omitempty"`

	Snapshots []Snapshot `json:"snapshots,omitempty"`
}

// Snapshot is the subscription result of one instance.
type Snapshot struct {
	Instance     string `json:"instance"`
	Rendered     bool   `json:"rendered"`
	Loading      bool   `json:"loading"`
	Data         any    `json:"data"`
	Error        string `json:"error,omitempty"`
	RenderError  string `json:"render_error,omitempty"`
	Subscribes   int    `json:"subscribes"`
	Unsubscribes int    `json:"unsubscribes"`
}

// ClientStats are the in-memory client counters at the end of a run.
type ClientStats struct {
	Requests     int `json:"requests"`
	Active       int `json:"active"`
	Unsubscribes int `json:"unsubscribes"`
}

// WriteText writes a line-oriented rendering of the trace.
func (t *Trace) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", t.Name)
	for _, st := range t.Steps {
		fmt.Fprintf(&b, "#%d %s", st.Index, st.Summary)
		if st.Delivered != nil {
			fmt.Fprintf(&b, " delivered=%d", *st.Delivered)
		}
		b.WriteByte('\n')
		for _, s := range st.Snapshots {
			fmt.Fprintf(&b, "   %s\n", s.String())
		}
	}
	fmt.Fprintf(&b, "client: requests=%d active=%d unsubscribes=%d\n",
		t.Client.Requests, t.Client.Active, t.Client.Unsubscribes)

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteJSON writes the trace as indented JSON.
func (t *Trace) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// String returns the one-line text form used by WriteText.
func (s Snapshot) String() string {
	var b strings.Builder
	b.WriteString(s.Instance)
	b.WriteString(":")
	if !s.Rendered {
		b.WriteString(" unrendered")
	} else {
		fmt.Fprintf(&b, " loading=%t data=%s", s.Loading, formatValue(s.Data))
		if s.Error != "" {
			fmt.Fprintf(&b, " error=%q", s.Error)
		}
		fmt.Fprintf(&b, " subscribes=%d unsubscribes=%d", s.Subscribes, s.Unsubscribes)
	}
	if s.RenderError != "" {
		fmt.Fprintf(&b, " render_error=%q", s.RenderError)
	}
	return b.String()
}

// formatValue renders v as compact JSON with sorted keys.
func formatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
