package commands

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/livesub/livesub-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	EventsByAction   map[log.Action]int
	Instances        map[string]*InstanceStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// InstanceStats holds statistics for a single component instance.
type InstanceStats struct {
	Component    string
	FirstSeen    time.Time
	LastSeen     time.Time
	Events       int
	Subscribes   int
	Unsubscribes int
	Pushes       int
	Ignored      int
}

// CollectStats reads the log file at path and aggregates its events.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		EventsByAction:   make(map[log.Action]int),
		Instances:        make(map[string]*InstanceStats),
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Subscription != nil {
		s.EventsByAction[event.Subscription.Action]++
	}
	if event.Error != nil {
		s.Errors++
	}

	// Transport events carry no instance.
	if event.InstanceID == "" {
		return
	}
	inst, ok := s.Instances[event.InstanceID]
	if !ok {
		inst = &InstanceStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Instances[event.InstanceID] = inst
	}
	inst.Events++
	if event.Timestamp.After(inst.LastSeen) {
		inst.LastSeen = event.Timestamp
	}
	if event.Component != "" && inst.Component == "" {
		inst.Component = event.Component
	}
	if event.Subscription != nil && event.Layer == log.LayerHook {
		switch event.Subscription.Action {
		case log.ActionSubscribe:
			inst.Subscribes++
		case log.ActionUnsubscribe:
			inst.Unsubscribes++
		case log.ActionData, log.ActionError:
			inst.Pushes++
		case log.ActionIgnored:
			inst.Ignored++
		}
	}
}

// RunStats analyzes the log file at path and prints statistics to w.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== livesub Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerComponent, log.LayerHook, log.LayerTransport} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryState, log.CategorySubscription, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Subscription Actions:")
	for _, a := range []log.Action{log.ActionSubscribe, log.ActionUnsubscribe, log.ActionData, log.ActionError, log.ActionIgnored} {
		if count := stats.EventsByAction[a]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", a.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Instances: %d\n", len(stats.Instances))
	if len(stats.Instances) > 0 {
		type instInfo struct {
			id    string
			stats *InstanceStats
		}
		insts := make([]instInfo, 0, len(stats.Instances))
		for id, is := range stats.Instances {
			insts = append(insts, instInfo{id, is})
		}
		sort.Slice(insts, func(i, j int) bool {
			return insts[i].stats.FirstSeen.Before(insts[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, inst := range insts {
			fmt.Fprintf(w, "  [%s] %d events", shortenID(inst.id), inst.stats.Events)
			if inst.stats.Component != "" {
				fmt.Fprintf(w, " (%s)", inst.stats.Component)
			}
			fmt.Fprintln(w)
			fmt.Fprintf(w, "           subscribes=%d unsubscribes=%d pushes=%d ignored=%d\n",
				inst.stats.Subscribes, inst.stats.Unsubscribes, inst.stats.Pushes, inst.stats.Ignored)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
