package llm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"relay/internal/bus"
)

// stubProvider returns a canned response or error.
type stubProvider struct {
	resp *LLMResponse
	err  error
}

func (s *stubProvider) Chat(ctx context.Context, req *ChatRequest) (*LLMResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) StreamChat(ctx context.Context, req *ChatRequest) (<-chan StreamEvent, error) {
	ch := make(chan StreamEvent)
	close(ch)
	return ch, s.err
}

func (s *stubProvider) Name() string         { return "stub" }
func (s *stubProvider) DefaultModel() string { return "stub-1" }

func waitForResponse(t *testing.T, ch <-chan map[string]any) map[string]any {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("no llm_response within 2s")
		return nil
	}
}

func TestRouterRoundTrip(t *testing.T) {
	b := bus.New()
	router := NewRouter(&stubProvider{resp: &LLMResponse{Content: "pong"}}, 5)
	if err := router.Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.LLMResponse, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.LLMRequest, map[string]any{
		"id":      "req-1",
		"request": &ChatRequest{Messages: []Message{{Role: "user", Content: "ping"}}},
	}); err != nil {
		t.Fatal(err)
	}

	payload := waitForResponse(t, got)
	if payload["id"] != "req-1" {
		t.Fatalf("expected correlation id req-1, got %v", payload["id"])
	}
	resp, ok := payload["response"].(*LLMResponse)
	if !ok || resp.Content != "pong" {
		t.Fatalf("unexpected response payload: %v", payload)
	}
}

func TestRouterSurfacesProviderError(t *testing.T) {
	b := bus.New()
	router := NewRouter(&stubProvider{err: fmt.Errorf("boom")}, 5)
	if err := router.Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.LLMResponse, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.LLMRequest, map[string]any{
		"id":      "req-2",
		"request": &ChatRequest{},
	}); err != nil {
		t.Fatal(err)
	}

	payload := waitForResponse(t, got)
	if payload["error"] != "boom" {
		t.Fatalf("expected error payload, got %v", payload)
	}
	if _, ok := payload["response"]; ok {
		t.Fatal("error response should not carry a result")
	}
}

func TestRouterRejectsMalformedRequest(t *testing.T) {
	b := bus.New()
	router := NewRouter(&stubProvider{resp: &LLMResponse{}}, 5)
	if err := router.Attach(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan map[string]any, 1)
	if err := b.RegisterHandler(bus.LLMResponse, func(e bus.Event) {
		got <- e.Payload
	}); err != nil {
		t.Fatal(err)
	}

	if err := b.Emit(bus.LLMRequest, map[string]any{"id": "req-3"}); err != nil {
		t.Fatal(err)
	}

	payload := waitForResponse(t, got)
	if payload["error"] == "" {
		t.Fatalf("expected error for missing request, got %v", payload)
	}
}
