package channel

import (
	"context"
	"log"

	"relay/internal/bus"
	"relay/internal/security"
)

// Bridge connects channels to the bus. Inbound messages become user_message
// events; agent_response events are routed back to the channel named in the
// payload. Channels never see the bus directly and the agent never sees
// channels.
type Bridge struct {
	mgr       *Manager
	bus       *bus.Bus
	sanitizer *security.Sanitizer
}

// NewBridge creates a bridge. sanitizer may be nil to disable PII handling.
func NewBridge(mgr *Manager, b *bus.Bus, sanitizer *security.Sanitizer) *Bridge {
	return &Bridge{mgr: mgr, bus: b, sanitizer: sanitizer}
}

// Attach wires all currently registered channels into the bus and subscribes
// the outbound side. Channels registered after Attach are not picked up.
func (br *Bridge) Attach(ctx context.Context) error {
	for name := range br.mgr.List() {
		ch, ok := br.mgr.Get(name)
		if !ok {
			continue
		}
		ch.OnMessage(br.inbound)
	}

	return br.bus.RegisterHandler(bus.AgentResponse, func(e bus.Event) {
		channelName, _ := e.Payload["channel"].(string)
		chatID, _ := e.Payload["chat_id"].(string)
		text, _ := e.Payload["text"].(string)

		ch, ok := br.mgr.Get(channelName)
		if !ok {
			log.Printf("[channel] agent_response for unknown channel %q", channelName)
			return
		}

		if br.sanitizer != nil {
			text = br.sanitizer.Restore(text)
		}

		// Delivery can block on network I/O; keep the dispatch path clear.
		go func() {
			if err := ch.Send(ctx, OutboundMessage{ChatID: chatID, Text: text}); err != nil {
				log.Printf("[channel] send via %s failed: %v", channelName, err)
			}
		}()
	})
}

func (br *Bridge) inbound(msg InboundMessage) {
	text := msg.Text
	if br.sanitizer != nil {
		text = br.sanitizer.Sanitize(text)
	}

	if err := br.bus.Emit(bus.UserMessage, map[string]any{
		"channel":     msg.ChannelName,
		"chat_id":     msg.ChatID,
		"sender_id":   msg.SenderID,
		"sender_name": msg.SenderName,
		"text":        text,
	}); err != nil {
		log.Printf("[channel] emit user_message from %s: %v", msg.ChannelName, err)
	}
}
