package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"relay/internal/bus"
)

// failingTool always errors.
type failingTool struct{}

func (f *failingTool) Name() string        { return "broken" }
func (f *failingTool) Description() string { return "always fails" }
func (f *failingTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (f *failingTool) Execute(ctx context.Context, args json.RawMessage) (*Result, error) {
	return nil, fmt.Errorf("deliberate failure")
}

func awaitResult(t *testing.T, ch <-chan map[string]any) map[string]any {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no tool_result within 2s")
		return nil
	}
}

func TestRunnerExecutesTool(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockTool{name: "echo"})

	b := bus.New()
	if err := NewRunner(r, 5).Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.ToolResult, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.ToolCall, map[string]any{
		"id":        "call-1",
		"name":      "echo",
		"arguments": json.RawMessage(`{}`),
	}); err != nil {
		t.Fatal(err)
	}

	payload := awaitResult(t, got)
	if payload["id"] != "call-1" {
		t.Fatalf("expected correlation id call-1, got %v", payload["id"])
	}
	if payload["is_error"] != false {
		t.Fatalf("expected success, got %v", payload)
	}
	if payload["result"] != "executed echo" {
		t.Fatalf("unexpected result: %v", payload["result"])
	}
}

func TestRunnerUnknownTool(t *testing.T) {
	b := bus.New()
	if err := NewRunner(NewRegistry(), 5).Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.ToolResult, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.ToolCall, map[string]any{
		"id":        "call-2",
		"name":      "missing",
		"arguments": json.RawMessage(`{}`),
	}); err != nil {
		t.Fatal(err)
	}

	payload := awaitResult(t, got)
	if payload["is_error"] != true {
		t.Fatalf("expected error result for unknown tool, got %v", payload)
	}
}

func TestRunnerToolFailure(t *testing.T) {
	r := NewRegistry()
	r.Register(&failingTool{})

	b := bus.New()
	if err := NewRunner(r, 5).Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.ToolResult, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.ToolCall, map[string]any{
		"id":        "call-3",
		"name":      "broken",
		"arguments": json.RawMessage(`{}`),
	}); err != nil {
		t.Fatal(err)
	}

	payload := awaitResult(t, got)
	if payload["is_error"] != true {
		t.Fatalf("expected error result, got %v", payload)
	}
}
