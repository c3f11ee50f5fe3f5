package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/logging"
	"github.com/avachat/ava/model"
)

// FallbackResponse is the fixed user-visible reply emitted as a single token
// when streaming fails or produces no output.
const FallbackResponse = "I'm having trouble responding right now. Please try again."

// ResponderOptions configures a Responder.
type ResponderOptions struct {
	// ContextTurns bounds the history window in the final prompt.
	ContextTurns int

	// Fallback overrides FallbackResponse when non-empty.
	Fallback string

	Logger logging.Logger
}

// Responder writes the user-visible reply: it builds the persona prompt with
// recalled memories and image context, then streams the reply from the
// persona's response model, forwarding each text delta through a callback.
type Responder struct {
	models   map[core.Persona]model.Model
	prompts  Prompts
	opts     ResponderOptions
	fallback string
	logger   logging.Logger
}

// NewResponder creates a Responder. models maps each persona to its
// configured response model.
func NewResponder(models map[core.Persona]model.Model, prompts Prompts, opts ResponderOptions) *Responder {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = 20
	}
	fallback := opts.Fallback
	if fallback == "" {
		fallback = FallbackResponse
	}
	return &Responder{
		models:   models,
		prompts:  prompts.withDefaults(),
		opts:     opts,
		fallback: fallback,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Stream generates the reply and forwards every non-empty text delta to
// emit in arrival order. It returns the accumulated full reply. On any
// streaming failure, or a stream that ends with zero output, exactly one
// fallback token is emitted instead; streaming is never retried mid-turn.
func (r *Responder) Stream(ctx context.Context, profile *core.Profile, persona core.Persona, history []core.Turn, message string, result PhaseResult, emit func(token string)) string {
	m, ok := r.models[persona]
	if !ok {
		r.logger.Error("no response model for persona", "persona", persona)
		emit(r.fallback)
		return r.fallback
	}

	messages := r.buildMessages(profile, persona, history, message, result)
	responses, errs := m.Generate(ctx, model.Request{Messages: messages, Stream: true})

	var full strings.Builder
	for responses != nil || errs != nil {
		select {
		case resp, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			if resp.Partial && resp.Delta != "" {
				full.WriteString(resp.Delta)
				emit(resp.Delta)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				r.logger.Error("streaming failed", "user_id", logging.ShortID(profile.ID), "error", err)
				emit(r.fallback)
				return r.fallback
			}
		}
	}

	if full.Len() == 0 {
		r.logger.Warn("stream produced no output", "user_id", logging.ShortID(profile.ID))
		emit(r.fallback)
		return r.fallback
	}
	return full.String()
}

// buildMessages assembles the final prompt: persona system prompt, display
// name, memory bullets, image context note, bounded trailing history, then
// the current message unless it already closes the history.
func (r *Responder) buildMessages(profile *core.Profile, persona core.Persona, history []core.Turn, message string, result PhaseResult) []model.Message {
	var system strings.Builder
	if persona == core.PersonaCompanion {
		system.WriteString(r.prompts.Companion)
	} else {
		system.WriteString(r.prompts.Assistant)
	}

	if profile.DisplayName != "" {
		fmt.Fprintf(&system, "\n\nThe user's name is %s.", profile.DisplayName)
	}

	if len(result.Memories) > 0 {
		system.WriteString("\n\nRelevant context from past conversations:\n")
		for _, mem := range result.Memories {
			system.WriteString("- ")
			system.WriteString(mem)
			system.WriteByte('\n')
		}
	}

	if len(result.Images) > 0 {
		system.WriteString("\n\n")
		system.WriteString(r.prompts.ImageContext)
	}

	messages := make([]model.Message, 0, r.opts.ContextTurns+2)
	messages = append(messages, model.SystemMessage(system.String()))
	for _, turn := range tailTurns(history, r.opts.ContextTurns) {
		messages = append(messages, model.Message{Role: string(turn.Role), Content: turn.Content})
	}
	if len(history) == 0 || history[len(history)-1].Content != message {
		messages = append(messages, model.UserMessage(message))
	}
	return messages
}
