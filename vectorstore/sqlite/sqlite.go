// Package sqlite stores memory vectors in a sqlite table, embeddings as
// little-endian float32 blobs. Similarity is computed in Go over the user's
// own vectors, which stays cheap at chat-memory scale and avoids a native
// vector extension.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/avachat/ava/core"
	"github.com/avachat/ava/vectorstore"
)

// Store implements core.VectorStore over a sqlite database.
type Store struct {
	db *sql.DB
}

var _ core.VectorStore = (*Store)(nil)

// Open creates a Store using the given database path and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewWithDB creates a Store using an existing database connection.
func NewWithDB(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS memory_vectors (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			source_turn_id TEXT,
			embedding BLOB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_memory_vectors_user ON memory_vectors(user_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Upsert implements core.VectorStore.
func (s *Store) Upsert(ctx context.Context, id string, vector []float32, payload core.VectorPayload) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_vectors (id, user_id, text, source_turn_id, embedding)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			text = excluded.text,
			source_turn_id = excluded.source_turn_id,
			embedding = excluded.embedding`,
		id, payload.UserID, payload.Text, payload.SourceTurnID, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("upsert vector: %w", err)
	}
	return nil
}

// Search implements core.VectorStore. Only the user's vectors are scanned;
// rowid order makes tie ranking stable across calls.
func (s *Store) Search(ctx context.Context, vector []float32, userID string, limit int) ([]core.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, embedding FROM memory_vectors WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var results []core.SearchResult
	for rows.Next() {
		var id, text string
		var blob []byte
		if err := rows.Scan(&id, &text, &blob); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		candidate, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", id, err)
		}
		results = append(results, core.SearchResult{
			ID:    id,
			Text:  text,
			Score: vectorstore.Cosine(vector, candidate),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob length %d not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
