// Package vectorstore provides core.VectorStore implementations for
// semantic memory: an in-memory store for tests and single-process use and a
// sqlite-backed store (subpackage sqlite) for durability.
package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/avachat/ava/core"
)

type record struct {
	id      string
	vector  []float32
	payload core.VectorPayload
	seq     int // insertion order, stable tie-break
}

// InMemory is a brute-force cosine-similarity vector store. Adequate for the
// per-user vector counts a chat memory produces.
type InMemory struct {
	mu      sync.RWMutex
	records map[string]*record
	nextSeq int
}

var _ core.VectorStore = (*InMemory)(nil)

// NewInMemory creates an empty in-memory vector store.
func NewInMemory() *InMemory {
	return &InMemory{records: make(map[string]*record)}
}

// Upsert implements core.VectorStore.
func (s *InMemory) Upsert(_ context.Context, id string, vector []float32, payload core.VectorPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec := make([]float32, len(vector))
	copy(vec, vector)

	if existing, ok := s.records[id]; ok {
		existing.vector = vec
		existing.payload = payload
		return nil
	}
	s.records[id] = &record{id: id, vector: vec, payload: payload, seq: s.nextSeq}
	s.nextSeq++
	return nil
}

// Search implements core.VectorStore. Only vectors owned by userID are
// considered; ties rank in insertion order.
func (s *InMemory) Search(_ context.Context, vector []float32, userID string, limit int) ([]core.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		*record
		score float64
	}
	var hits []scored
	for _, r := range s.records {
		if r.payload.UserID != userID {
			continue
		}
		hits = append(hits, scored{record: r, score: Cosine(vector, r.vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].seq < hits[j].seq
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	results := make([]core.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = core.SearchResult{ID: h.id, Text: h.payload.Text, Score: h.score}
	}
	return results, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is a
// zero vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
