// Package memory implements long-term semantic memory: extracting facts from
// completed exchanges, persisting them as embeddings, and recalling them by
// similarity for later turns.
package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/embedding"
	"github.com/avachat/ava/logging"
)

// NoMemoriesFound is the sentinel recall result handed to the responder when
// nothing relevant is stored. It is prompt text, not an error.
const NoMemoriesFound = "No relevant memories found."

// Options configures a Service.
type Options struct {
	// MinFactLength is the exclusive length threshold below which an
	// exchange produces no fact.
	MinFactLength int

	// RecallLimit caps the number of memories a recall returns.
	RecallLimit int

	Logger logging.Logger
}

// Service ties an embedder to a vector store.
type Service struct {
	embedder embedding.Embedder
	store    core.VectorStore
	opts     Options
	logger   logging.Logger
}

// NewService creates a memory service.
func NewService(embedder embedding.Embedder, store core.VectorStore, opts Options) *Service {
	if opts.MinFactLength <= 0 {
		opts.MinFactLength = 40
	}
	if opts.RecallLimit <= 0 {
		opts.RecallLimit = 5
	}
	return &Service{
		embedder: embedder,
		store:    store,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// ExtractFacts derives the facts worth remembering from one completed
// exchange. The combined transcript is stored as a single fact, and only
// when it carries enough substance to be worth a vector.
func (s *Service) ExtractFacts(userMessage, assistantReply string) []string {
	fact := fmt.Sprintf("User said: %s\nAssistant replied: %s", userMessage, assistantReply)
	if len(fact) <= s.opts.MinFactLength {
		return nil
	}
	return []string{fact}
}

// Remember embeds and persists one fact for the user. The write is
// at-least-once: a retried call stores a duplicate vector rather than
// losing the fact.
func (s *Service) Remember(ctx context.Context, userID, text, sourceTurnID string) (string, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("embed fact: %w", err)
	}
	id := core.NewID()
	payload := core.VectorPayload{UserID: userID, Text: text, SourceTurnID: sourceTurnID}
	if err := s.store.Upsert(ctx, id, vector, payload); err != nil {
		return "", fmt.Errorf("store fact: %w", err)
	}
	s.logger.Debug("fact remembered", "user_id", logging.ShortID(userID), "memory_id", id)
	return id, nil
}

// Recall returns the texts of up to RecallLimit memories relevant to query,
// most similar first. Recall degrades rather than fails: any embedding or
// store error yields an empty result so the conversational turn can proceed
// without memories.
func (s *Service) Recall(ctx context.Context, userID, query string) []string {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("memory recall skipped, embed failed", "user_id", logging.ShortID(userID), "error", err)
		return nil
	}
	results, err := s.store.Search(ctx, vector, userID, s.opts.RecallLimit)
	if err != nil {
		s.logger.Warn("memory recall skipped, search failed", "user_id", logging.ShortID(userID), "error", err)
		return nil
	}
	texts := make([]string, 0, len(results))
	for _, r := range results {
		texts = append(texts, r.Text)
	}
	return texts
}

// RecallAsTool formats a recall for consumption as a tool result: bulleted
// memories, or the no-memories sentinel.
func (s *Service) RecallAsTool(ctx context.Context, userID, query string) string {
	memories := s.Recall(ctx, userID, query)
	if len(memories) == 0 {
		return NoMemoriesFound
	}
	var sb strings.Builder
	for i, m := range memories {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(m)
	}
	return sb.String()
}
