package bus

import (
	"fmt"
	"sort"
)

// snapshot is an immutable dispatch artifact: per event type, the handlers
// to invoke in registration order. Lookup is an array index, so steady-state
// emits never pay for registrations. Once published a snapshot is never
// mutated; emits that loaded an older snapshot keep using it safely.
type snapshot struct {
	slots [numEventTypes][]Handler
}

func (s *snapshot) handlersFor(t EventType) []Handler {
	return s.slots[typeOrdinal[t]]
}

// compile materializes a handler table into a snapshot. Pure: it reads the
// table, allocates fresh slices, and touches no shared state. An empty table
// compiles to a snapshot that dispatches to nobody.
func compile(table handlerTable) (*snapshot, error) {
	snap := &snapshot{}
	for t, entries := range table {
		ord, ok := typeOrdinal[t]
		if !ok {
			return nil, fmt.Errorf("unknown event type in handler table: %q", t)
		}
		sorted := make([]HandlerEntry, len(entries))
		copy(sorted, entries)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

		handlers := make([]Handler, len(sorted))
		for i, e := range sorted {
			handlers[i] = e.Fn
		}
		snap.slots[ord] = handlers
	}
	return snap, nil
}
