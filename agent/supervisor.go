// Package agent composes the safety gate, mode state machine, supervisor,
// responder and memory subsystem into the per-turn pipeline that emits the
// event stream consumed by the transport layer.
package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/image"
	"github.com/avachat/ava/logging"
	"github.com/avachat/ava/memory"
	"github.com/avachat/ava/model"
	"github.com/avachat/ava/tool"
)

// Tool names offered to the supervisor model.
const (
	ToolRecallMemories = "recall_memories"
	ToolGenerateImage  = "generate_image"
)

// supervisorTools are the exact two tools every supervisor call is offered.
var supervisorTools = []model.ToolDefinition{
	{
		Name:        ToolRecallMemories,
		Description: "Search the user's long-term memory for facts relevant to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search the user's memories for.",
				},
			},
			"required": []string{"query"},
		},
	},
	{
		Name:        ToolGenerateImage,
		Description: "Generate an image the user asked for.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type":        "string",
					"description": "What the image should depict.",
				},
			},
			"required": []string{"prompt"},
		},
	},
}

// PhaseResult is the outcome of one supervisor tool phase. Either field may
// be empty.
type PhaseResult struct {
	// Images are base64-encoded rendered images.
	Images []string

	// Memories are recalled fact texts, most relevant first.
	Memories []string
}

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	// ContextTurns bounds the history window shown to the supervisor model.
	ContextTurns int

	// ImageContextTurns bounds the conversation context given to the
	// prompt rewriter.
	ImageContextTurns int

	// MaxIterations caps the tool loop. The model may chain calls (recall
	// before deciding on an image) until it stops requesting tools or the
	// cap is reached.
	MaxIterations int

	// ExtraTools registers additional callable tools beyond the two
	// built-ins. Built-in names cannot be shadowed.
	ExtraTools []tool.Tool

	Logger logging.Logger
}

// Supervisor runs the preliminary tool phase of a turn: a non-streaming
// model call that may request memory recall and image generation before the
// reply is written. Every failure inside the phase is recoverable; the worst
// outcome is an empty PhaseResult.
type Supervisor struct {
	model     model.Model
	memory    *memory.Service
	rewriter  *image.Rewriter
	generator image.Generator
	prompts   Prompts
	tools     []model.ToolDefinition
	extras    map[string]tool.Tool
	opts      SupervisorOptions
	logger    logging.Logger
}

// NewSupervisor creates a Supervisor. rewriter and generator may be nil when
// no image backend is deployed; generate_image then reports failure to the
// model and the turn stays text-only.
func NewSupervisor(m model.Model, mem *memory.Service, rewriter *image.Rewriter, generator image.Generator, prompts Prompts, opts SupervisorOptions) *Supervisor {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = 10
	}
	if opts.ImageContextTurns <= 0 {
		opts.ImageContextTurns = 6
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 3
	}

	defs := make([]model.ToolDefinition, len(supervisorTools), len(supervisorTools)+len(opts.ExtraTools))
	copy(defs, supervisorTools)
	extras := make(map[string]tool.Tool, len(opts.ExtraTools))
	for _, t := range opts.ExtraTools {
		if t.Name() == ToolRecallMemories || t.Name() == ToolGenerateImage {
			continue
		}
		extras[t.Name()] = t
		defs = append(defs, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}

	return &Supervisor{
		model:     m,
		memory:    mem,
		rewriter:  rewriter,
		generator: generator,
		prompts:   prompts.withDefaults(),
		tools:     defs,
		extras:    extras,
		opts:      opts,
		logger:    logging.OrNoOp(opts.Logger),
	}
}

// Run executes the tool phase for one turn.
func (s *Supervisor) Run(ctx context.Context, message string, history []core.Turn, profile *core.Profile) PhaseResult {
	messages := s.buildMessages(message, history)

	var result PhaseResult
	for iteration := 0; iteration < s.opts.MaxIterations; iteration++ {
		reply, err := s.complete(ctx, messages)
		if err != nil {
			s.logger.Error("supervisor call failed", "user_id", logging.ShortID(profile.ID), "error", err)
			return result
		}
		if len(reply.ToolCalls) == 0 {
			s.logger.Debug("supervisor: no tool calls", "user_id", logging.ShortID(profile.ID), "iteration", iteration)
			return result
		}

		messages = append(messages, reply)
		for _, call := range reply.ToolCalls {
			toolResult := s.dispatch(ctx, call, message, history, profile, &result)
			messages = append(messages, model.ToolMessage(call.ID, toolResult))
		}
	}
	return result
}

func (s *Supervisor) buildMessages(message string, history []core.Turn) []model.Message {
	messages := make([]model.Message, 0, len(history)+2)
	messages = append(messages, model.SystemMessage(s.prompts.Supervisor))
	for _, turn := range tailTurns(history, s.opts.ContextTurns) {
		messages = append(messages, model.Message{Role: string(turn.Role), Content: turn.Content})
	}
	if len(history) == 0 || history[len(history)-1].Content != message {
		messages = append(messages, model.UserMessage(message))
	}
	return messages
}

// complete issues one non-streaming model call and returns the final
// message.
func (s *Supervisor) complete(ctx context.Context, messages []model.Message) (model.Message, error) {
	responses, errs := s.model.Generate(ctx, model.Request{Messages: messages, Tools: s.tools})

	var final model.Message
	for responses != nil || errs != nil {
		select {
		case resp, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			if !resp.Partial {
				final = resp.Message
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return model.Message{}, err
			}
		}
	}
	return final, nil
}

// dispatch executes one requested tool call, mutating result with whatever
// the tool produced, and returns the tool-role text fed back to the model.
// Tool names form a closed set; unknown names degrade to a no-op result.
func (s *Supervisor) dispatch(ctx context.Context, call model.ToolCall, message string, history []core.Turn, profile *core.Profile, result *PhaseResult) string {
	args := parseArguments(call.Arguments)

	switch call.Name {
	case ToolRecallMemories:
		query, _ := args["query"].(string)
		if query == "" {
			query = message
		}
		text := s.memory.RecallAsTool(ctx, profile.ID, query)
		if text != memory.NoMemoriesFound {
			result.Memories = parseMemoryBullets(text)
			s.logger.Info("supervisor recalled memories",
				"user_id", logging.ShortID(profile.ID), "count", len(result.Memories))
		}
		return text

	case ToolGenerateImage:
		intent, _ := args["prompt"].(string)
		if intent == "" {
			intent = message
		}
		images, note := s.generateImage(ctx, intent, history, profile)
		if len(images) > 0 {
			result.Images = images
		}
		return note

	default:
		if extra, ok := s.extras[call.Name]; ok {
			out, err := extra.Call(ctx, args)
			if err != nil {
				s.logger.Warn("extra tool failed", "tool", call.Name, "error", err)
				return fmt.Sprintf("Tool %s failed: %v", call.Name, err)
			}
			return fmt.Sprintf("%v", out)
		}
		s.logger.Warn("supervisor requested unknown tool", "tool", call.Name)
		return fmt.Sprintf("Unknown tool: %s", call.Name)
	}
}

// generateImage rewrites the intent into a diffusion prompt then calls the
// image backend. Failures, including timeouts, become a textual note so the
// model can fall back to a text-only reply.
func (s *Supervisor) generateImage(ctx context.Context, intent string, history []core.Turn, profile *core.Profile) ([]string, string) {
	if s.generator == nil {
		return nil, "Image generation failed: no image backend configured. Respond with text instead."
	}

	prompt := intent
	if s.rewriter != nil {
		var contextTurns []string
		for _, turn := range tailTurns(history, s.opts.ImageContextTurns) {
			contextTurns = append(contextTurns, fmt.Sprintf("%s: %s", turn.Role, turn.Content))
		}
		prompt = s.rewriter.Rewrite(ctx, intent, contextTurns)
	}

	results, err := s.generator.Generate(ctx, prompt, profile)
	if err != nil {
		s.logger.Warn("image generation failed", "user_id", logging.ShortID(profile.ID), "error", err)
		return nil, fmt.Sprintf("Image generation failed: %v. Respond with text instead.", err)
	}

	encoded := make([]string, 0, len(results))
	for _, r := range results {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(r.Bytes))
	}
	s.logger.Info("image generated", "user_id", logging.ShortID(profile.ID), "count", len(encoded))
	return encoded, fmt.Sprintf("Image generated successfully for: %s", intent)
}

// parseArguments decodes tool-call arguments permissively: malformed JSON
// degrades to an empty argument set rather than aborting the turn.
func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}

// parseMemoryBullets splits a bulleted recall result back into memory texts.
func parseMemoryBullets(text string) []string {
	var memories []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "- "))
		if line != "" {
			memories = append(memories, line)
		}
	}
	return memories
}

// tailTurns returns the last n turns of history.
func tailTurns(history []core.Turn, n int) []core.Turn {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
