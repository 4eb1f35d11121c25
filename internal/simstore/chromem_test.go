package simstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := NewStore(context.Background(), Config{
		Provider:   "chromem",
		Collection: "test_embeddings",
		VectorSize: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestChromemStore_AddAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []Record{
		{ErrorID: "e1", Cause: "NetworkError", Text: "fetch failed", Embedding: []float32{1, 0, 0}},
		{ErrorID: "e2", Cause: "NetworkError", Text: "timeout", Embedding: []float32{0.9, 0.1, 0}},
		{ErrorID: "e3", Cause: "ValidationError", Text: "bad email", Embedding: []float32{0, 1, 0}},
	}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "e1", matches[0].ErrorID)
	assert.Equal(t, "NetworkError", matches[0].Cause)
	assert.InDelta(t, 1.0, float64(matches[0].Similarity), 1e-5)
	assert.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)
}

func TestChromemStore_EmptyQueryReturnsEmpty(t *testing.T) {
	store := newTestStore(t)

	matches, err := store.Query(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestChromemStore_KLargerThanCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []Record{
		{ErrorID: "e1", Cause: "NetworkError", Text: "x", Embedding: []float32{1, 0, 0}},
	}))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestChromemStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, []Record{
		{ErrorID: "e1", Cause: "NetworkError", Text: "x", Embedding: []float32{1, 0, 0}},
		{ErrorID: "e2", Cause: "ValidationError", Text: "y", Embedding: []float32{0, 1, 0}},
	}))

	require.NoError(t, store.Delete(ctx, []string{"e1"}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewStore_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(ctx, Config{VectorSize: 3})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(ctx, Config{Collection: "c"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewStore(ctx, Config{Collection: "c", VectorSize: 3, Provider: "redis"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestChromemStore_AddRequiresID(t *testing.T) {
	store := newTestStore(t)
	err := store.Add(context.Background(), []Record{{Cause: "x", Embedding: []float32{1, 0, 0}}})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
