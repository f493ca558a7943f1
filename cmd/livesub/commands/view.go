// Package commands implements the log commands of the livesub CLI.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/livesub/livesub-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter = log.Filter

// FilterFlags holds the raw filter flag values shared by view, filter, and
// export.
type FilterFlags struct {
	Instance  string
	Layer     string
	Category  string
	Action    string
	Operation string
	TimeStart string
	TimeEnd   string
}

// Build parses the flag values into a log.Filter.
func (f FilterFlags) Build() (log.Filter, error) {
	filter := log.Filter{
		InstanceID: f.Instance,
		Operation:  f.Operation,
	}

	if f.Layer != "" {
		l, err := ParseLayerFlag(f.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if f.Category != "" {
		c, err := ParseCategoryFlag(f.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if f.Action != "" {
		a, err := ParseActionFlag(f.Action)
		if err != nil {
			return filter, err
		}
		filter.Action = &a
	}
	if f.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, f.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid since format: %w", err)
		}
		filter.TimeStart = &t
	}
	if f.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, f.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid until format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [inst:id] LAYER Type (component)
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	instID := shortenID(event.InstanceID)
	if instID == "" {
		instID = "-"
	}

	var typeLabel string
	switch {
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Subscription != nil:
		typeLabel = event.Subscription.Action.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [inst:%s] %s %s", ts, instID, event.Layer.String(), typeLabel)
	if event.Component != "" {
		fmt.Fprintf(w, " (%s)", event.Component)
	}
	fmt.Fprintln(w)

	switch {
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Subscription != nil:
		formatSubscriptionDetails(w, event.Subscription)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of an ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatSubscriptionDetails(w io.Writer, sub *log.SubscriptionEvent) {
	if sub.Operation != "" {
		fmt.Fprintf(w, "  Operation: %s\n", sub.Operation)
	}
	if sub.SubscriptionID != "" {
		fmt.Fprintf(w, "  SubscriptionID: %s\n", shortenID(sub.SubscriptionID))
	}
	if sub.Key != "" {
		fmt.Fprintf(w, "  Key: %s\n", sub.Key)
	}
	if len(sub.Variables) > 0 {
		vars, err := json.Marshal(sub.Variables)
		if err == nil {
			fmt.Fprintf(w, "  Variables: %s\n", string(vars))
		}
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from a command-line flag
// (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	l, ok := log.ParseLayer(s)
	if !ok {
		return 0, fmt.Errorf("invalid layer: %s (must be component, hook, or transport)", s)
	}
	return l, nil
}

// ParseCategoryFlag parses a category string from a command-line flag
// (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	c, ok := log.ParseCategory(s)
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be state, subscription, or error)", s)
	}
	return c, nil
}

// ParseActionFlag parses a subscription action from a command-line flag
// (case-insensitive).
func ParseActionFlag(s string) (log.Action, error) {
	a, ok := log.ParseAction(s)
	if !ok {
		return 0, fmt.Errorf("invalid action: %s (must be subscribe, unsubscribe, data, error, or ignored)", s)
	}
	return a, nil
}

// RunView writes every event of the log file at path that matches filter.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}
	return nil
}
