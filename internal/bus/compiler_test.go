package bus

import "testing"

func TestCompileEmptyTable(t *testing.T) {
	snap, err := compile(make(handlerTable))
	if err != nil {
		t.Fatal(err)
	}
	for _, et := range eventTypes {
		if len(snap.handlersFor(et)) != 0 {
			t.Fatalf("empty table compiled with handlers for %s", et)
		}
	}
}

func TestCompileSortsBySeq(t *testing.T) {
	var order []int
	mk := func(n int) Handler {
		return func(Event) { order = append(order, n) }
	}

	// Entries deliberately out of sequence order.
	table := handlerTable{
		ToolCall: {
			{Type: ToolCall, Fn: mk(3), Seq: 3},
			{Type: ToolCall, Fn: mk(1), Seq: 1},
			{Type: ToolCall, Fn: mk(2), Seq: 2},
		},
	}

	snap, err := compile(table)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range snap.handlersFor(ToolCall) {
		h(Event{})
	}
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("expected seq order [1 2 3], got %v", order)
	}
}

func TestCompileDoesNotMutateTable(t *testing.T) {
	table := handlerTable{
		SystemEvent: {
			{Type: SystemEvent, Fn: func(Event) {}, Seq: 2},
			{Type: SystemEvent, Fn: func(Event) {}, Seq: 1},
		},
	}

	if _, err := compile(table); err != nil {
		t.Fatal(err)
	}

	entries := table[SystemEvent]
	if entries[0].Seq != 2 || entries[1].Seq != 1 {
		t.Fatal("compile reordered the handler table in place")
	}
}

func TestCompileRejectsUnknownType(t *testing.T) {
	table := handlerTable{
		"bogus": {{Type: "bogus", Fn: func(Event) {}, Seq: 1}},
	}
	if _, err := compile(table); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}
