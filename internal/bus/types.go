package bus

// EventType identifies the role of an event in the agent pipeline.
// The set is closed: emitting or subscribing with any other value is
// rejected with ErrInvalidEventType.
type EventType string

const (
	UserMessage   EventType = "user_message"
	LLMRequest    EventType = "llm_request"
	LLMResponse   EventType = "llm_response"
	ToolCall      EventType = "tool_call"
	ToolResult    EventType = "tool_result"
	AgentResponse EventType = "agent_response"
	SystemEvent   EventType = "system_event"
)

// eventTypes fixes the ordinal used to index dispatch snapshots.
var eventTypes = [...]EventType{
	UserMessage,
	LLMRequest,
	LLMResponse,
	ToolCall,
	ToolResult,
	AgentResponse,
	SystemEvent,
}

const numEventTypes = len(eventTypes)

var typeOrdinal = func() map[EventType]int {
	m := make(map[EventType]int, numEventTypes)
	for i, t := range eventTypes {
		m[t] = i
	}
	return m
}()

// Valid reports whether t belongs to the closed enumeration.
func (t EventType) Valid() bool {
	_, ok := typeOrdinal[t]
	return ok
}

// Event is a message passed through the bus. It is immutable once
// constructed; handlers must not modify the payload.
type Event struct {
	Type      EventType
	Payload   map[string]any
	Timestamp int64 // nanoseconds, non-decreasing across emits
}

// Handler processes an event. Handlers run synchronously on the
// emitting caller and should self-limit their duration.
type Handler func(Event)

// HandlerEntry is one registration in the handler table. Seq is globally
// unique and strictly increasing; it fixes invocation order.
type HandlerEntry struct {
	Type EventType
	Fn   Handler
	Seq  uint64
}

// handlerTable is the mutable registration state, owned exclusively by the
// bus's registration path. Dispatch never reads it; it reads snapshots.
type handlerTable map[EventType][]HandlerEntry
