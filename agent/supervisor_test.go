package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/embedding"
	"github.com/avachat/ava/image"
	"github.com/avachat/ava/memory"
	"github.com/avachat/ava/model"
	"github.com/avachat/ava/tool"
	"github.com/avachat/ava/vectorstore"
)

type fakeGenerator struct {
	results []image.Result
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, _ *core.Profile) ([]image.Result, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return g.results, nil
}

func newTestMemory(t *testing.T, facts ...string) *memory.Service {
	t.Helper()
	svc := memory.NewService(embedding.NewLocal(128), vectorstore.NewInMemory(), memory.Options{})
	for _, f := range facts {
		_, err := svc.Remember(context.Background(), "user-1", f, "turn-0")
		require.NoError(t, err)
	}
	return svc
}

func testProfile() *core.Profile {
	return &core.Profile{ID: "user-1", Persona: core.PersonaAssistant}
}

func TestSupervisorNoToolCalls(t *testing.T) {
	mock := model.NewMock("supervisor", model.MockStep{Text: "no tools needed"})
	sup := NewSupervisor(mock, newTestMemory(t), nil, nil, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "hello there", nil, testProfile())
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Memories)
}

func TestSupervisorModelFailureDegrades(t *testing.T) {
	mock := model.NewMock("supervisor", model.MockStep{Err: errors.New("backend down")})
	sup := NewSupervisor(mock, newTestMemory(t), nil, nil, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "hello there", nil, testProfile())
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Memories)
}

func TestSupervisorRecallsMemories(t *testing.T) {
	mem := newTestMemory(t, "User said: my dog is called Biscuit\nAssistant replied: Great name")
	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: ToolRecallMemories, Arguments: `{"query": "dog name"}`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, mem, nil, nil, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "what was my dog called?", nil, testProfile())
	require.NotEmpty(t, result.Memories)
	assert.Contains(t, result.Memories[0], "Biscuit")
}

func TestSupervisorGeneratesImage(t *testing.T) {
	gen := &fakeGenerator{results: []image.Result{{Bytes: []byte("png"), Filename: "out.png"}}}
	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: ToolGenerateImage, Arguments: `{"prompt": "a sunset"}`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, newTestMemory(t), nil, gen, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "show me a sunset", nil, testProfile())
	require.Len(t, result.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), result.Images[0])
	assert.Equal(t, []string{"a sunset"}, gen.prompts)
}

func TestSupervisorImageFailureDegradesToText(t *testing.T) {
	gen := &fakeGenerator{err: image.ErrTimeout}
	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: ToolGenerateImage, Arguments: `{"prompt": "a sunset"}`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, newTestMemory(t), nil, gen, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "show me a sunset", nil, testProfile())
	assert.Empty(t, result.Images)
}

func TestSupervisorMalformedArgumentsDegrade(t *testing.T) {
	mem := newTestMemory(t)
	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: ToolRecallMemories, Arguments: `{not json`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, mem, nil, nil, Prompts{}, SupervisorOptions{})

	// Malformed arguments fall back to the message as the query; the turn
	// does not abort.
	result := sup.Run(context.Background(), "anything on record?", nil, testProfile())
	assert.Empty(t, result.Memories)
}

func TestSupervisorUnknownToolIsNoOp(t *testing.T) {
	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: "send_email", Arguments: `{}`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, newTestMemory(t), nil, nil, Prompts{}, SupervisorOptions{})

	result := sup.Run(context.Background(), "hi", nil, testProfile())
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Memories)
}

func TestSupervisorIterationCap(t *testing.T) {
	// The model keeps requesting tools forever; the loop must stop at the cap.
	steps := make([]model.MockStep, 0, 10)
	for i := 0; i < 10; i++ {
		steps = append(steps, model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: ToolRecallMemories, Arguments: `{"query": "loop"}`},
		}})
	}
	mock := model.NewMock("supervisor", steps...)
	sup := NewSupervisor(mock, newTestMemory(t), nil, nil, Prompts{}, SupervisorOptions{MaxIterations: 2})

	result := sup.Run(context.Background(), "hi", nil, testProfile())
	assert.Empty(t, result.Memories)
}

func TestSupervisorExtraTool(t *testing.T) {
	weather := tool.NewFunctionTool("get_weather", "Current weather for a city.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string"},
			},
			"required": []string{"city"},
		},
		func(_ context.Context, args map[string]any) (any, error) {
			return fmt.Sprintf("Sunny in %v", args["city"]), nil
		})

	mock := model.NewMock("supervisor",
		model.MockStep{ToolCalls: []model.ToolCall{
			{ID: "c1", Name: "get_weather", Arguments: `{"city": "Berlin"}`},
		}},
		model.MockStep{Text: "done"},
	)
	sup := NewSupervisor(mock, newTestMemory(t), nil, nil, Prompts{},
		SupervisorOptions{ExtraTools: []tool.Tool{weather}})

	// The extra tool runs without aborting the phase; its result feeds the
	// model transcript only.
	result := sup.Run(context.Background(), "weather in berlin?", nil, testProfile())
	assert.Empty(t, result.Images)
	assert.Empty(t, result.Memories)
}

func TestParseMemoryBullets(t *testing.T) {
	memories := parseMemoryBullets("- first fact\n- second fact\n")
	assert.Equal(t, []string{"first fact", "second fact"}, memories)
}
