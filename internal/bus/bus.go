package bus

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrInvalidEventType is returned when a caller passes an event type
// outside the closed enumeration.
var ErrInvalidEventType = errors.New("invalid event type")

// Bus is the process-wide typed event dispatcher. Emits read the current
// snapshot through an atomic pointer and never lock; registrations are
// serialized under a mutex, recompile the dispatch table, and publish the
// result as a new snapshot. Readers never block writers and writers never
// block readers.
type Bus struct {
	mu      sync.Mutex // serializes registration; never held during dispatch
	table   handlerTable
	nextSeq uint64

	current atomic.Pointer[snapshot]
	lastTS  atomic.Int64

	// compileFn is swapped in tests to exercise compilation failure.
	compileFn func(handlerTable) (*snapshot, error)
}

// New creates a bus with an empty handler table. The empty table always
// compiles, so the bus is dispatch-ready immediately.
func New() *Bus {
	b := &Bus{
		table:     make(handlerTable),
		compileFn: compile,
	}
	snap, err := compile(b.table)
	if err != nil {
		// Cannot happen for an empty table; fall back to a bare snapshot
		// rather than returning a bus with a nil dispatch pointer.
		log.Printf("[bus] empty table failed to compile: %v", err)
		snap = &snapshot{}
	}
	b.current.Store(snap)
	return b
}

// Emit constructs an Event and invokes every handler registered for its
// type, in registration order, synchronously on the caller. A panicking
// handler is logged and skipped; the remaining handlers still run. The only
// error surfaced to the caller is ErrInvalidEventType.
func (b *Bus) Emit(t EventType, payload map[string]any) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, t)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	evt := Event{Type: t, Payload: payload, Timestamp: b.nextTimestamp()}

	snap := b.current.Load()
	for _, h := range snap.handlersFor(t) {
		invoke(h, evt)
	}
	return nil
}

// RegisterHandler adds a handler for an event type and blocks until the
// registration is committed. If recompilation fails the previous snapshot
// stays in force and the entry goes live on the next successful compile;
// the caller only ever sees ErrInvalidEventType as a hard error.
func (b *Bus) RegisterHandler(t EventType, fn Handler) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, t)
	}
	if fn == nil {
		return fmt.Errorf("nil handler for %s", t)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	b.table[t] = append(b.table[t], HandlerEntry{Type: t, Fn: fn, Seq: b.nextSeq})

	snap, err := b.compileFn(b.table)
	if err != nil {
		log.Printf("[bus] recompile failed after registering %s handler, keeping previous dispatch table: %v", t, err)
		return nil
	}
	b.current.Store(snap)
	return nil
}

// EventTypes returns the closed enumeration in its fixed order.
func (b *Bus) EventTypes() []EventType {
	out := make([]EventType, numEventTypes)
	copy(out, eventTypes[:])
	return out
}

// HandlerCount returns the number of handlers in the current snapshot,
// for diagnostics.
func (b *Bus) HandlerCount() int {
	snap := b.current.Load()
	n := 0
	for _, slot := range snap.slots {
		n += len(slot)
	}
	return n
}

// nextTimestamp returns wall-clock nanoseconds bumped to stay strictly
// increasing across concurrent emits.
func (b *Bus) nextTimestamp() int64 {
	for {
		ts := time.Now().UnixNano()
		last := b.lastTS.Load()
		if ts <= last {
			ts = last + 1
		}
		if b.lastTS.CompareAndSwap(last, ts) {
			return ts
		}
	}
}

// invoke runs one handler behind a panic boundary so a misbehaving handler
// cannot take down dispatch for the rest of the chain.
func invoke(h Handler, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[bus] handler panic on %s: %v", evt.Type, r)
		}
	}()
	h(evt)
}
