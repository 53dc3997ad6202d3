package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"relay/internal/bus"
	"relay/internal/config"
	"relay/internal/memory"
)

// KindHeartbeat is the system_event kind emitted on every heartbeat tick.
const KindHeartbeat = "heartbeat"

// Scheduler emits periodic system events onto the bus: heartbeats for
// liveness and maintenance ticks for stores that subscribe to them. It is a
// pure producer; it never consumes events.
type Scheduler struct {
	mu      sync.Mutex
	cfg     config.SchedulerConfig
	bus     *bus.Bus
	cancel  context.CancelFunc
	running bool
}

// New creates a scheduler. Start must be called before anything is emitted.
func New(cfg config.SchedulerConfig, b *bus.Bus) *Scheduler {
	if cfg.HeartbeatSecs <= 0 {
		cfg.HeartbeatSecs = 60
	}
	if cfg.PruneEveryMins <= 0 {
		cfg.PruneEveryMins = 360
	}
	return &Scheduler{cfg: cfg, bus: b}
}

// Start launches the tick loops. Stopping the context stops them.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || !s.cfg.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	go s.tick(ctx, time.Duration(s.cfg.HeartbeatSecs)*time.Second, KindHeartbeat)
	go s.tick(ctx, time.Duration(s.cfg.PruneEveryMins)*time.Minute, memory.KindPrune)

	log.Printf("[scheduler] started (heartbeat %ds, prune %dm)", s.cfg.HeartbeatSecs, s.cfg.PruneEveryMins)
}

// Stop halts all tick loops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.running = false
}

// IsRunning reports whether the scheduler has been started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) tick(ctx context.Context, every time.Duration, kind string) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.bus.Emit(bus.SystemEvent, map[string]any{
				"kind":   kind,
				"source": "scheduler",
			}); err != nil {
				log.Printf("[scheduler] emit %s: %v", kind, err)
			}
		}
	}
}
