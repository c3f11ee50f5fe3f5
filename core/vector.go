package core

import "context"

// VectorPayload is the metadata persisted alongside an embedding. One vector
// exists per remembered fact; the payload carries the owning user so search
// can be scoped, plus a back-reference to the turn the fact was derived from.
type VectorPayload struct {
	UserID       string `json:"user_id"`
	Text         string `json:"text"`
	SourceTurnID string `json:"source_turn_id,omitempty"`
}

// SearchResult is one ranked hit from a vector similarity search.
type SearchResult struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// VectorStore persists embeddings for the memory subsystem.
//
// Implementations must enforce the owner filter inside Search: results never
// include vectors written for a different user. Ranking is by descending
// similarity; ties are broken in a stable store-defined order. The store is
// not deduplicated, so duplicate upserts on retry are acceptable.
type VectorStore interface {
	// Upsert writes one vector under id.
	Upsert(ctx context.Context, id string, vector []float32, payload VectorPayload) error

	// Search returns up to limit hits for the query vector, restricted to
	// vectors owned by userID.
	Search(ctx context.Context, vector []float32, userID string, limit int) ([]SearchResult, error)
}
