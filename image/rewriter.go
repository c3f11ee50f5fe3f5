package image

import (
	"context"
	"strings"

	"github.com/avachat/ava/logging"
	"github.com/avachat/ava/model"
)

const rewriterSystemPrompt = `You convert a conversational image request into a concise prompt for a diffusion image model.
Output only the prompt: a comma-separated list of visual descriptors (subject, pose, setting, lighting, style).
Do not output explanations, quotes, or anything besides the prompt.`

// Rewriter turns a raw image intent plus recent conversation context into a
// diffusion-ready prompt using a small model. Rewriting is best effort: on
// any failure the raw intent is used as the prompt.
type Rewriter struct {
	model  model.Model
	logger logging.Logger
}

// NewRewriter creates a prompt rewriter backed by m.
func NewRewriter(m model.Model, logger logging.Logger) *Rewriter {
	return &Rewriter{model: m, logger: logging.OrNoOp(logger)}
}

// Rewrite returns the diffusion prompt for intent. contextTurns may be empty.
func (r *Rewriter) Rewrite(ctx context.Context, intent string, contextTurns []string) string {
	var sb strings.Builder
	if len(contextTurns) > 0 {
		sb.WriteString("Recent conversation:\n")
		for _, t := range contextTurns {
			sb.WriteString(t)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("Image request: ")
	sb.WriteString(intent)

	responses, errs := r.model.Generate(ctx, model.Request{
		Messages: []model.Message{
			model.SystemMessage(rewriterSystemPrompt),
			model.UserMessage(sb.String()),
		},
	})

	var out string
	for responses != nil || errs != nil {
		select {
		case resp, ok := <-responses:
			if !ok {
				responses = nil
				continue
			}
			if !resp.Partial {
				out = resp.Message.Content
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				r.logger.Warn("prompt rewrite failed, using raw intent", "error", err)
				return intent
			}
		}
	}

	out = strings.TrimSpace(out)
	if out == "" {
		return intent
	}
	return out
}
