// Package embedding turns text into fixed-dimension vectors for semantic
// memory search.
package embedding

import "context"

// Embedder produces a vector representation of a text. Implementations must
// return vectors of a single fixed dimension and be safe for concurrent use.
type Embedder interface {
	// Embed returns the vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the length of every vector this embedder produces.
	Dimension() int
}
