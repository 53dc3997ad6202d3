package llm

import (
	"context"
	"log"
	"time"

	"relay/internal/bus"
)

// Router is the bus boundary of the provider layer: it consumes llm_request
// events, calls the configured provider, and emits llm_response events
// carrying the request's correlation ID. Providers are slow, so the call
// runs on its own goroutine and never stalls the emitting caller.
type Router struct {
	provider Provider
	timeout  time.Duration
}

// NewRouter creates a router around a provider. timeoutSecs bounds each
// provider call; zero means 120s.
func NewRouter(p Provider, timeoutSecs int) *Router {
	if timeoutSecs <= 0 {
		timeoutSecs = 120
	}
	return &Router{
		provider: p,
		timeout:  time.Duration(timeoutSecs) * time.Second,
	}
}

// SetProvider swaps the underlying provider (e.g. after a config change).
// Requests already in flight finish on the old provider.
func (r *Router) SetProvider(p Provider) {
	r.provider = p
}

// Attach subscribes the router to llm_request events.
func (r *Router) Attach(b *bus.Bus) error {
	return b.RegisterHandler(bus.LLMRequest, func(e bus.Event) {
		id, _ := e.Payload["id"].(string)
		req, _ := e.Payload["request"].(*ChatRequest)
		if req == nil {
			log.Printf("[llm] llm_request %q without a request payload", id)
			r.respond(b, id, nil, "malformed llm_request payload")
			return
		}
		go r.serve(b, id, req)
	})
}

func (r *Router) serve(b *bus.Bus, id string, req *ChatRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	resp, err := r.provider.Chat(ctx, req)
	if err != nil {
		log.Printf("[llm] chat failed for request %s: %v", id, err)
		r.respond(b, id, nil, err.Error())
		return
	}
	r.respond(b, id, resp, "")
}

func (r *Router) respond(b *bus.Bus, id string, resp *LLMResponse, errMsg string) {
	payload := map[string]any{"id": id}
	if resp != nil {
		payload["response"] = resp
	}
	if errMsg != "" {
		payload["error"] = errMsg
	}
	if err := b.Emit(bus.LLMResponse, payload); err != nil {
		log.Printf("[llm] emit llm_response: %v", err)
	}
}
