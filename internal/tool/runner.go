package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"relay/internal/bus"
)

// Runner is the bus boundary of the tool layer: it consumes tool_call
// events, executes the named tool from the registry, and emits tool_result
// events with the call's correlation ID. Execution runs on its own
// goroutine so a slow tool never stalls the emitting caller.
type Runner struct {
	registry *Registry
	timeout  time.Duration
}

// NewRunner creates a runner over a registry. timeoutSecs bounds each tool
// execution; zero means 60s.
func NewRunner(registry *Registry, timeoutSecs int) *Runner {
	if timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return &Runner{
		registry: registry,
		timeout:  time.Duration(timeoutSecs) * time.Second,
	}
}

// Attach subscribes the runner to tool_call events.
func (r *Runner) Attach(b *bus.Bus) error {
	return b.RegisterHandler(bus.ToolCall, func(e bus.Event) {
		id, _ := e.Payload["id"].(string)
		name, _ := e.Payload["name"].(string)
		args, _ := e.Payload["arguments"].(json.RawMessage)
		go r.run(b, id, name, args)
	})
}

func (r *Runner) run(b *bus.Bus, id, name string, args json.RawMessage) {
	result := r.execute(name, args)

	payload := map[string]any{
		"id":       id,
		"result":   result.Output,
		"is_error": result.IsError,
	}
	if result.IsError {
		payload["result"] = result.Error
		if result.Output != "" {
			payload["result"] = result.Output + "\n" + result.Error
		}
	}
	if err := b.Emit(bus.ToolResult, payload); err != nil {
		log.Printf("[tool] emit tool_result: %v", err)
	}
}

func (r *Runner) execute(name string, args json.RawMessage) *Result {
	tl, err := r.registry.Get(name)
	if err != nil {
		return &Result{Error: fmt.Sprintf("tool not found: %s", name), IsError: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	res, err := tl.Execute(ctx, args)
	if err != nil {
		return &Result{Error: "tool execution failed: " + err.Error(), IsError: true}
	}
	return res
}
