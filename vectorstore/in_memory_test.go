package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avachat/ava/core"
)

func TestSearchOwnerIsolation(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "va", []float32{1, 0}, core.VectorPayload{UserID: "alice", Text: "alice fact"}))
	require.NoError(t, store.Upsert(ctx, "vb", []float32{1, 0}, core.VectorPayload{UserID: "bob", Text: "bob fact"}))

	results, err := store.Search(ctx, []float32{1, 0}, "alice", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alice fact", results[0].Text)

	results, err = store.Search(ctx, []float32{1, 0}, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "exact", []float32{1, 0, 0}, core.VectorPayload{UserID: "u", Text: "exact"}))
	require.NoError(t, store.Upsert(ctx, "close", []float32{0.9, 0.1, 0}, core.VectorPayload{UserID: "u", Text: "close"}))
	require.NoError(t, store.Upsert(ctx, "far", []float32{0, 0, 1}, core.VectorPayload{UserID: "u", Text: "far"}))

	results, err := store.Search(ctx, []float32{1, 0, 0}, "u", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Text)
	assert.Equal(t, "close", results[1].Text)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	// Identical vectors, identical scores.
	require.NoError(t, store.Upsert(ctx, "first", []float32{1, 0}, core.VectorPayload{UserID: "u", Text: "first"}))
	require.NoError(t, store.Upsert(ctx, "second", []float32{1, 0}, core.VectorPayload{UserID: "u", Text: "second"}))
	require.NoError(t, store.Upsert(ctx, "third", []float32{1, 0}, core.VectorPayload{UserID: "u", Text: "third"}))

	results, err := store.Search(ctx, []float32{1, 0}, "u", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].ID, results[1].ID, results[2].ID})
}

func TestUpsertReplacesExisting(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "v", []float32{1, 0}, core.VectorPayload{UserID: "u", Text: "old"}))
	require.NoError(t, store.Upsert(ctx, "v", []float32{0, 1}, core.VectorPayload{UserID: "u", Text: "new"}))

	results, err := store.Search(ctx, []float32{0, 1}, "u", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new", results[0].Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Zero(t, Cosine([]float32{1}, []float32{1, 0}))
}
