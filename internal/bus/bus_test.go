package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestEmitNoHandlers(t *testing.T) {
	b := New()
	for _, et := range b.EventTypes() {
		if err := b.Emit(et, nil); err != nil {
			t.Fatalf("emit %s with no handlers: %v", et, err)
		}
	}
}

func TestDispatchOrder(t *testing.T) {
	b := New()
	var order []string

	if err := b.RegisterHandler(ToolResult, func(e Event) {
		order = append(order, "A")
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterHandler(ToolResult, func(e Event) {
		order = append(order, "B")
	}); err != nil {
		t.Fatal(err)
	}

	before := time.Now().UnixNano()
	if err := b.Emit(ToolResult, map[string]any{"value": 1}); err != nil {
		t.Fatal(err)
	}

	if len(order) != 2 || order[0] != "A" || order[1] != "B" {
		t.Fatalf("expected [A B], got %v", order)
	}

	var got Event
	if err := b.RegisterHandler(ToolResult, func(e Event) { got = e }); err != nil {
		t.Fatal(err)
	}
	if err := b.Emit(ToolResult, map[string]any{"value": 1}); err != nil {
		t.Fatal(err)
	}
	if got.Type != ToolResult {
		t.Fatalf("expected tool_result, got %s", got.Type)
	}
	if got.Payload["value"] != 1 {
		t.Fatalf("expected payload value 1, got %v", got.Payload["value"])
	}
	if got.Timestamp < before {
		t.Fatalf("timestamp %d predates emit call %d", got.Timestamp, before)
	}
}

func TestRegistrationOrderManyHandlers(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		if err := b.RegisterHandler(SystemEvent, func(e Event) {
			order = append(order, i)
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.Emit(SystemEvent, nil); err != nil {
		t.Fatal(err)
	}

	if len(order) != 10 {
		t.Fatalf("expected 10 invocations, got %d", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("expected registration order, got %v", order)
		}
	}
}

func TestTypeIsolation(t *testing.T) {
	b := New()
	calls := 0
	if err := b.RegisterHandler(UserMessage, func(e Event) { calls++ }); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(AgentResponse, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Emit(LLMRequest, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("handler for user_message fired on other types: %d calls", calls)
	}

	if err := b.Emit(UserMessage, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestInvalidEventType(t *testing.T) {
	b := New()
	fired := false
	for _, et := range b.EventTypes() {
		_ = b.RegisterHandler(et, func(e Event) { fired = true })
	}

	if err := b.Emit("bogus", nil); !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
	if fired {
		t.Fatal("invalid emit reached a handler")
	}

	if err := b.RegisterHandler("bogus", func(e Event) {}); !errors.Is(err, ErrInvalidEventType) {
		t.Fatalf("expected ErrInvalidEventType, got %v", err)
	}
}

func TestCompileFailureKeepsPreviousSnapshot(t *testing.T) {
	b := New()
	var order []string
	if err := b.RegisterHandler(ToolCall, func(e Event) {
		order = append(order, "first")
	}); err != nil {
		t.Fatal(err)
	}

	// Force the next compile to fail: the registration is recorded but must
	// not take effect, and dispatch must keep using the old snapshot.
	b.compileFn = func(handlerTable) (*snapshot, error) {
		return nil, fmt.Errorf("forced failure")
	}
	if err := b.RegisterHandler(ToolCall, func(e Event) {
		order = append(order, "second")
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(ToolCall, nil); err != nil {
		t.Fatal(err)
	}
	if len(order) != 1 || order[0] != "first" {
		t.Fatalf("expected only pre-failure handler, got %v", order)
	}

	// A later successful compile picks up the stranded registration.
	b.compileFn = compile
	if err := b.RegisterHandler(ToolCall, func(e Event) {
		order = append(order, "third")
	}); err != nil {
		t.Fatal(err)
	}

	order = nil
	if err := b.Emit(ToolCall, nil); err != nil {
		t.Fatal(err)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("expected [first second third], got %v", order)
	}
}

func TestHandlerPanicIsolated(t *testing.T) {
	b := New()
	secondRan := false

	if err := b.RegisterHandler(UserMessage, func(e Event) {
		panic("handler blew up")
	}); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterHandler(UserMessage, func(e Event) {
		secondRan = true
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(UserMessage, nil); err != nil {
		t.Fatalf("emit should survive a panicking handler: %v", err)
	}
	if !secondRan {
		t.Fatal("handler after the panicking one did not run")
	}
}

func TestDuplicateRegistrationInvokedTwice(t *testing.T) {
	b := New()
	calls := 0
	h := func(e Event) { calls++ }

	if err := b.RegisterHandler(SystemEvent, h); err != nil {
		t.Fatal(err)
	}
	if err := b.RegisterHandler(SystemEvent, h); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(SystemEvent, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls for duplicate registration, got %d", calls)
	}
}

func TestTimestampsNonDecreasing(t *testing.T) {
	b := New()
	var stamps []int64
	if err := b.RegisterHandler(SystemEvent, func(e Event) {
		stamps = append(stamps, e.Timestamp)
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 1000; i++ {
		if err := b.Emit(SystemEvent, nil); err != nil {
			t.Fatal(err)
		}
	}

	for i := 1; i < len(stamps); i++ {
		if stamps[i] <= stamps[i-1] {
			t.Fatalf("timestamp went backwards at %d: %d then %d", i, stamps[i-1], stamps[i])
		}
	}
}

func TestEventTypes(t *testing.T) {
	b := New()
	types := b.EventTypes()
	want := []EventType{
		UserMessage, LLMRequest, LLMResponse, ToolCall, ToolResult, AgentResponse, SystemEvent,
	}
	if len(types) != len(want) {
		t.Fatalf("expected %d types, got %d", len(want), len(types))
	}
	for i, et := range want {
		if types[i] != et {
			t.Fatalf("expected %s at %d, got %s", et, i, types[i])
		}
	}

	// The returned slice is a copy; mutating it must not corrupt the bus.
	types[0] = "mangled"
	if b.EventTypes()[0] != UserMessage {
		t.Fatal("EventTypes exposed internal state")
	}
}

func TestConcurrentEmitAndRegister(t *testing.T) {
	b := New()
	var count sync.Map

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Emitters hammer the bus while registrations churn the snapshot.
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					if err := b.Emit(LLMResponse, map[string]any{"n": 1}); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		i := i
		if err := b.RegisterHandler(LLMResponse, func(e Event) {
			v, _ := count.LoadOrStore(i, new(atomic.Int64))
			v.(*atomic.Int64).Add(1)
		}); err != nil {
			t.Fatal(err)
		}
	}

	close(stop)
	wg.Wait()

	// Once registered, a handler deterministically sees all later emits.
	if err := b.Emit(LLMResponse, nil); err != nil {
		t.Fatal(err)
	}
	seen := 0
	count.Range(func(_, _ any) bool { seen++; return true })
	if seen != 50 {
		t.Fatalf("expected all 50 handlers to have run at least once, got %d", seen)
	}
}
