package agent

import (
	"context"
	"log"

	"relay/internal/llm"
)

// processMessage runs the agent loop for a single user message.
// Loop: think → act → observe, repeating until the LLM produces a final
// text response. Thinking is an llm_request/llm_response round trip,
// acting is a tool_call/tool_result round trip.
func (a *Agent) processMessage(ctx context.Context, chatID, userText string) (string, error) {
	// Load history from memory
	historyLimit := a.cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 50
	}
	history, err := a.memory.GetHistory(ctx, chatID, historyLimit)
	if err != nil {
		log.Printf("[agent] failed to load history: %v", err)
		history = nil
	}

	// Check for existing summary
	summary, _ := a.memory.GetSummary(ctx, chatID)

	// Build messages
	messages := make([]llm.Message, 0, len(history)+2)

	if summary != "" {
		messages = append(messages, llm.Message{
			Role:    "user",
			Content: "[Previous conversation summary]: " + summary,
		})
		messages = append(messages, llm.Message{
			Role:    "assistant",
			Content: "I understand the previous context. How can I help?",
		})
	}

	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: "user", Content: userText})

	// Save user message
	_ = a.memory.SaveMessage(ctx, chatID, llm.Message{Role: "user", Content: userText})

	// Agent loop
	toolCallCount := 0
	for {
		// Check context window, summarize if needed
		if a.ctxManager.shouldSummarize(messages) {
			newSummary, recent, err := a.ctxManager.summarize(ctx, messages)
			if err == nil && newSummary != "" {
				_ = a.memory.SaveSummary(ctx, chatID, newSummary)
				messages = append([]llm.Message{
					{Role: "user", Content: "[Conversation summary]: " + newSummary},
					{Role: "assistant", Content: "I understand the context. Continuing..."},
				}, recent...)
			}
		}

		// Think: round trip through the bus to the provider
		req := &llm.ChatRequest{
			Messages:     messages,
			Tools:        a.tools.Definitions(),
			MaxTokens:    a.cfg.MaxTokens,
			Temperature:  a.cfg.Temperature,
			SystemPrompt: a.cfg.SystemPrompt,
		}

		resp, err := a.chat(ctx, req)
		if err != nil {
			return "", err
		}

		// If no tool calls, we have the final response
		if len(resp.ToolCalls) == 0 {
			_ = a.memory.SaveMessage(ctx, chatID, llm.Message{Role: "assistant", Content: resp.Content})
			return resp.Content, nil
		}

		// Guard against infinite tool call loops
		toolCallCount += len(resp.ToolCalls)
		if toolCallCount > a.cfg.MaxToolCalls {
			msg := "I've reached the maximum number of tool calls for this request. Here's what I have so far: " + resp.Content
			_ = a.memory.SaveMessage(ctx, chatID, llm.Message{Role: "assistant", Content: msg})
			return msg, nil
		}

		// Record assistant message with tool calls
		assistantMsg := llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		messages = append(messages, assistantMsg)

		// Act: each tool call is a bus round trip to the runner
		for _, tc := range resp.ToolCalls {
			result, isError := a.callTool(ctx, tc)
			if isError && result == "" {
				result = "Error executing tool"
			}

			// Observe: add tool result to messages
			toolMsg := llm.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			}
			messages = append(messages, toolMsg)
		}
	}
}
