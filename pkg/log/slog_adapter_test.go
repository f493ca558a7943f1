package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func decodeSlogEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	if buf.Len() == 0 {
		t.Fatal("no output produced")
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	return entry
}

func TestSlogAdapterLogsSubscriptionEvent(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(Event{
		Timestamp:  time.Now(),
		InstanceID: "inst-123",
		Layer:      LayerHook,
		Category:   CategorySubscription,
		Subscription: &SubscriptionEvent{
			Action:    ActionSubscribe,
			Operation: "OnMessage",
			Key:       "abcd",
		},
	})

	entry := decodeSlogEntry(t, &buf)
	if entry["instance_id"] != "inst-123" {
		t.Errorf("instance_id: got %v, want %q", entry["instance_id"], "inst-123")
	}
	if entry["layer"] != "HOOK" {
		t.Errorf("layer: got %v, want %q", entry["layer"], "HOOK")
	}
	if entry["action"] != "SUBSCRIBE" {
		t.Errorf("action: got %v, want %q", entry["action"], "SUBSCRIBE")
	}
	if entry["operation"] != "OnMessage" {
		t.Errorf("operation: got %v, want %q", entry["operation"], "OnMessage")
	}
	if entry["level"] != "DEBUG" {
		t.Errorf("level: got %v, want DEBUG", entry["level"])
	}
}

func TestSlogAdapterLogsStateChange(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	adapter.Log(Event{
		Layer:    LayerComponent,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntityInstance,
			OldState: "MOUNTED",
			NewState: "UNMOUNTED",
			Reason:   "unmount",
		},
	})

	entry := decodeSlogEntry(t, &buf)
	if entry["new_state"] != "UNMOUNTED" {
		t.Errorf("new_state: got %v, want UNMOUNTED", entry["new_state"])
	}
	if entry["reason"] != "unmount" {
		t.Errorf("reason: got %v, want unmount", entry["reason"])
	}
}

func TestSlogAdapterWithLevel(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil))).WithLevel(slog.LevelInfo)

	adapter.Log(Event{
		Layer:    LayerTransport,
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerTransport, Message: "socket closed"},
	})

	entry := decodeSlogEntry(t, &buf)
	if entry["level"] != "INFO" {
		t.Errorf("level: got %v, want INFO", entry["level"])
	}
	if entry["error_msg"] != "socket closed" {
		t.Errorf("error_msg: got %v, want %q", entry["error_msg"], "socket closed")
	}
}
