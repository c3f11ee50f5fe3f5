package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/avachat/ava/core"
)

// OpenAI embeds text through an OpenAI-compatible /v1/embeddings endpoint.
// Works against Ollama's compatibility layer with models such as
// nomic-embed-text.
type OpenAI struct {
	client *openai.Client
	model  string
	dim    int
}

var _ Embedder = (*OpenAI)(nil)

// NewOpenAI creates an embedder bound to one model. dim is the dimension the
// model is known to produce; responses of any other length are rejected so a
// model swap cannot silently corrupt the vector store.
func NewOpenAI(client *openai.Client, model string, dim int) *OpenAI {
	return &OpenAI{client: client, model: model, dim: dim}
}

// Embed implements Embedder.
func (e *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, &core.BackendUnavailableError{Backend: "embeddings", Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &core.BackendUnavailableError{Backend: "embeddings", Err: fmt.Errorf("empty response for model %s", e.model)}
	}
	raw := resp.Data[0].Embedding
	if len(raw) != e.dim {
		return nil, fmt.Errorf("embedding dimension mismatch: model %s returned %d, expected %d", e.model, len(raw), e.dim)
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimension implements Embedder.
func (e *OpenAI) Dimension() int { return e.dim }
