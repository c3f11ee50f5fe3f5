package model

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var responses []Response
	var err error
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			responses = append(responses, r)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			err = e
		}
	}
	return responses, err
}

func TestMock_StreamingOrderAndFinal(t *testing.T) {
	m := NewMock("test", MockStep{Text: "hey"})
	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("hi")},
		Stream:   true,
	})
	responses, err := drain(t, respCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var streamed strings.Builder
	for _, r := range responses[:len(responses)-1] {
		if !r.Partial {
			t.Fatalf("non-partial response before final: %+v", r)
		}
		streamed.WriteString(r.Delta)
	}
	final := responses[len(responses)-1]
	if final.Partial || final.Message.Content != "hey" || streamed.String() != "hey" {
		t.Fatalf("stream mismatch: streamed=%q final=%+v", streamed.String(), final)
	}
}

func TestMock_ScriptedToolCalls(t *testing.T) {
	m := NewMock("test", MockStep{
		ToolCalls: []ToolCall{{ID: "c1", Name: "recall_memories", Arguments: `{"query":"cats"}`}},
	})
	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("what do I like?")},
	})
	responses, err := drain(t, respCh, errCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final := responses[len(responses)-1]
	if len(final.Message.ToolCalls) != 1 || final.Message.ToolCalls[0].Name != "recall_memories" {
		t.Fatalf("tool calls not forwarded: %+v", final.Message)
	}
	if final.FinishReason != "tool_calls" {
		t.Fatalf("unexpected finish reason: %q", final.FinishReason)
	}
}

func TestMock_MidStreamFailure(t *testing.T) {
	boom := errors.New("boom")
	m := NewMock("test", MockStep{Text: "hello", Err: boom, FailAfter: 2})
	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("hi")},
		Stream:   true,
	})
	responses, err := drain(t, respCh, errCh)
	if !errors.Is(err, boom) {
		t.Fatalf("expected scripted error, got %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("expected 2 deltas before failure, got %d", len(responses))
	}
}

func TestLastUserContent(t *testing.T) {
	msgs := []Message{
		SystemMessage("sys"),
		UserMessage("first"),
		AssistantMessage("reply"),
		UserMessage("second"),
	}
	if got := LastUserContent(msgs); got != "second" {
		t.Fatalf("got %q", got)
	}
	if got := LastUserContent(nil); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
