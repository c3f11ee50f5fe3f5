package model

import (
	"context"
	"fmt"
)

// Chat message roles understood by every adapter.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider
// branching. Arguments carry the raw JSON string as received.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a minimal JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Message is one entry of a chat transcript. Assistant messages may carry
// tool calls; tool-role messages answer a prior call via ToolCallID.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolMessage builds a tool-role response keyed to the originating call id.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// Request captures the normalized model input.
type Request struct {
	Messages []Message        `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// Response is a (partial or final) chunk emitted by a model. Partial
// responses carry one text delta; the final response carries the full
// assistant message including any tool calls.
type Response struct {
	Partial      bool    `json:"partial"`
	Delta        string  `json:"delta,omitempty"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate
// returns a response channel and an error channel; both are closed when the
// call completes. Partial responses arrive in order before the final one.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// LastUserContent returns the content of the most recent user message, or ""
// if none exists. Used by mock scripting and logging.
func LastUserContent(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// Mock is a lightweight in-memory Model useful for tests and examples. Each
// Generate call consumes the next scripted step; when the script is
// exhausted a generic echo response is produced.
type Mock struct {
	info  Info
	steps []MockStep
}

// MockStep scripts one Generate call of a Mock model.
type MockStep struct {
	Text      string     // final assistant text
	ToolCalls []ToolCall // tool calls attached to the final message
	Err       error      // emitted on the error channel instead of a response
	FailAfter int        // with Err and streaming: deltas emitted before failing
}

// NewMock constructs a Mock with basic tool support enabled.
func NewMock(name string, steps ...MockStep) *Mock {
	return &Mock{
		info:  Info{Name: name, Provider: "mock", SupportsTools: true},
		steps: steps,
	}
}

// Enqueue appends scripted steps.
func (m *Mock) Enqueue(steps ...MockStep) { m.steps = append(m.steps, steps...) }

// Generate implements Model; emits optional streaming rune chunks then the
// final response, per the current script step.
func (m *Mock) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	var step MockStep
	if len(m.steps) > 0 {
		step = m.steps[0]
		m.steps = m.steps[1:]
	} else {
		step = MockStep{Text: fmt.Sprintf("Mock response to: %s", LastUserContent(req.Messages))}
	}

	go func() {
		defer close(respCh)
		defer close(errCh)

		if step.Err != nil && step.FailAfter == 0 {
			errCh <- step.Err
			return
		}

		if req.Stream {
			emitted := 0
			for _, r := range step.Text {
				if step.Err != nil && emitted >= step.FailAfter {
					errCh <- step.Err
					return
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Delta: string(r)}:
					emitted++
				}
			}
			if step.Err != nil {
				errCh <- step.Err
				return
			}
		}

		final := Message{Role: RoleAssistant, Content: step.Text, ToolCalls: step.ToolCalls}
		reason := "stop"
		if len(step.ToolCalls) > 0 {
			reason = "tool_calls"
		}
		respCh <- Response{Partial: false, Message: final, FinishReason: reason}
	}()

	return respCh, errCh
}

// Info implements the Model interface.
func (m *Mock) Info() Info { return m.info }
