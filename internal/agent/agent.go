package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"relay/internal/bus"
	"relay/internal/config"
	"relay/internal/llm"
	"relay/internal/memory"
	"relay/internal/tool"
)

// Agent is the reasoning loop at its bus boundary. It consumes
// user_message, llm_response, and tool_result events, and emits
// llm_request, tool_call, and agent_response events. It never calls
// providers or tools directly; every think/act round trip goes through
// the bus and is matched back by correlation ID.
type Agent struct {
	cfg    config.AgentConfig
	bus    *bus.Bus
	tools  *tool.Registry
	memory memory.Memory

	ctxManager *contextManager

	mu        sync.Mutex
	llmWaits  map[string]chan llmReply
	toolWaits map[string]chan toolReply

	replyTimeout time.Duration
}

type llmReply struct {
	resp   *llm.LLMResponse
	errMsg string
}

type toolReply struct {
	result  string
	isError bool
}

// New creates an Agent. Attach must be called to subscribe it to the bus.
func New(cfg config.AgentConfig, b *bus.Bus, tools *tool.Registry, mem memory.Memory) *Agent {
	replyTimeout := time.Duration(cfg.ReplyTimeout) * time.Second
	if replyTimeout <= 0 {
		replyTimeout = 180 * time.Second
	}
	a := &Agent{
		cfg:          cfg,
		bus:          b,
		tools:        tools,
		memory:       mem,
		llmWaits:     make(map[string]chan llmReply),
		toolWaits:    make(map[string]chan toolReply),
		replyTimeout: replyTimeout,
	}
	a.ctxManager = newContextManager(a.chat, cfg.ContextWindow, cfg.SummarizeAt)
	return a
}

// Attach subscribes the agent's handlers. user_message starts a processing
// goroutine per message; llm_response and tool_result only hand replies to
// whichever round trip is waiting on them, so these handlers return fast.
func (a *Agent) Attach(ctx context.Context, b *bus.Bus) error {
	if err := b.RegisterHandler(bus.UserMessage, func(e bus.Event) {
		msg := inboundFromPayload(e.Payload)
		if msg.Text == "" {
			return
		}
		go a.handleMessage(ctx, msg)
	}); err != nil {
		return err
	}

	if err := b.RegisterHandler(bus.LLMResponse, func(e bus.Event) {
		id, _ := e.Payload["id"].(string)
		reply := llmReply{}
		reply.resp, _ = e.Payload["response"].(*llm.LLMResponse)
		reply.errMsg, _ = e.Payload["error"].(string)

		a.mu.Lock()
		ch := a.llmWaits[id]
		a.mu.Unlock()
		if ch != nil {
			ch <- reply
		}
	}); err != nil {
		return err
	}

	return b.RegisterHandler(bus.ToolResult, func(e bus.Event) {
		id, _ := e.Payload["id"].(string)
		reply := toolReply{}
		reply.result, _ = e.Payload["result"].(string)
		reply.isError, _ = e.Payload["is_error"].(bool)

		a.mu.Lock()
		ch := a.toolWaits[id]
		a.mu.Unlock()
		if ch != nil {
			ch <- reply
		}
	})
}

// inbound is a user message as carried in a user_message payload.
type inbound struct {
	Channel    string
	ChatID     string
	SenderID   string
	SenderName string
	Text       string
}

func inboundFromPayload(p map[string]any) inbound {
	msg := inbound{}
	msg.Channel, _ = p["channel"].(string)
	msg.ChatID, _ = p["chat_id"].(string)
	msg.SenderID, _ = p["sender_id"].(string)
	msg.SenderName, _ = p["sender_name"].(string)
	msg.Text, _ = p["text"].(string)
	return msg
}

// handleMessage processes one inbound message and emits the response.
func (a *Agent) handleMessage(ctx context.Context, msg inbound) {
	log.Printf("[agent] processing message from %s (%s): %s", msg.SenderName, msg.Channel, truncate(msg.Text, 100))

	response, err := a.processMessage(ctx, msg.ChatID, msg.Text)
	if err != nil {
		log.Printf("[agent] error processing message: %v", err)
		response = "Sorry, I encountered an error processing your message. Please try again."
		_ = a.bus.Emit(bus.SystemEvent, map[string]any{
			"kind":   "agent.error",
			"source": "agent",
			"error":  err.Error(),
		})
	}

	if err := a.bus.Emit(bus.AgentResponse, map[string]any{
		"channel": msg.Channel,
		"chat_id": msg.ChatID,
		"text":    response,
	}); err != nil {
		log.Printf("[agent] emit agent_response: %v", err)
	}
}

// chat runs one think round trip over the bus: emit llm_request, wait for
// the llm_response carrying the same correlation ID.
func (a *Agent) chat(ctx context.Context, req *llm.ChatRequest) (*llm.LLMResponse, error) {
	id := uuid.NewString()
	ch := make(chan llmReply, 1)

	a.mu.Lock()
	a.llmWaits[id] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.llmWaits, id)
		a.mu.Unlock()
	}()

	if err := a.bus.Emit(bus.LLMRequest, map[string]any{"id": id, "request": req}); err != nil {
		return nil, err
	}

	select {
	case reply := <-ch:
		if reply.errMsg != "" {
			return nil, fmt.Errorf("LLM error: %s", reply.errMsg)
		}
		if reply.resp == nil {
			return nil, fmt.Errorf("empty llm_response for request %s", id)
		}
		return reply.resp, nil
	case <-time.After(a.replyTimeout):
		return nil, fmt.Errorf("no llm_response for request %s within %s", id, a.replyTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callTool runs one act round trip over the bus: emit tool_call, wait for
// the matching tool_result.
func (a *Agent) callTool(ctx context.Context, tc llm.ToolCall) (string, bool) {
	id := uuid.NewString()
	ch := make(chan toolReply, 1)

	a.mu.Lock()
	a.toolWaits[id] = ch
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		delete(a.toolWaits, id)
		a.mu.Unlock()
	}()

	args := tc.Arguments
	if args == nil {
		args = json.RawMessage(`{}`)
	}
	if err := a.bus.Emit(bus.ToolCall, map[string]any{
		"id":        id,
		"call_id":   tc.ID,
		"name":      tc.Name,
		"arguments": args,
	}); err != nil {
		return "Error dispatching tool call: " + err.Error(), true
	}

	select {
	case reply := <-ch:
		return reply.result, reply.isError
	case <-time.After(a.replyTimeout):
		return fmt.Sprintf("Error: no result from tool '%s' within %s", tc.Name, a.replyTimeout), true
	case <-ctx.Done():
		return "Error: cancelled", true
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
