package memory

import (
	"context"
	"testing"
	"time"

	"relay/internal/bus"
	"relay/internal/llm"
)

func TestPrune(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	if err := mem.SaveMessage(ctx, "chat1", llm.Message{Role: "user", Content: "old enough"}); err != nil {
		t.Fatal(err)
	}

	// Cutoff in the future: everything is older and goes away.
	n, err := mem.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned row, got %d", n)
	}

	history, err := mem.GetHistory(ctx, "chat1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history after prune, got %d", len(history))
	}
}

func TestPruneKeepsRecent(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	mem.SaveMessage(ctx, "chat1", llm.Message{Role: "user", Content: "fresh"})

	n, err := mem.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 pruned rows, got %d", n)
	}
}

func TestMaintenanceRespondsToPruneEvents(t *testing.T) {
	mem := newTestMemory(t)
	b := bus.New()

	if err := AttachMaintenance(b, mem, 30); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	mem.SaveMessage(ctx, "chat1", llm.Message{Role: "user", Content: "recent"})

	// Unrelated system events must not prune anything.
	if err := b.Emit(bus.SystemEvent, map[string]any{"kind": "heartbeat"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Emit(bus.SystemEvent, map[string]any{"kind": KindPrune}); err != nil {
		t.Fatal(err)
	}

	history, err := mem.GetHistory(ctx, "chat1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("recent message should survive pruning, got %d rows", len(history))
	}
}
