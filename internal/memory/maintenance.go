package memory

import (
	"context"
	"log"
	"time"

	"relay/internal/bus"
)

// KindPrune is the system_event kind that triggers retention pruning.
// The scheduler emits it on its prune interval.
const KindPrune = "memory.prune"

// AttachMaintenance subscribes the store to system events so scheduled
// maintenance reaches it through the bus like everything else. Only
// conversation rows are touched; the events themselves are never stored.
func AttachMaintenance(b *bus.Bus, mem Memory, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	return b.RegisterHandler(bus.SystemEvent, func(e bus.Event) {
		kind, _ := e.Payload["kind"].(string)
		if kind != KindPrune {
			return
		}
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		n, err := mem.Prune(context.Background(), cutoff)
		if err != nil {
			log.Printf("[memory] prune failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("[memory] pruned %d messages older than %d days", n, retentionDays)
		}
	})
}
