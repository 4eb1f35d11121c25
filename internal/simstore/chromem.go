package simstore

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"
)

// ChromemStore is an embedded store backed by chromem-go. With a
// persistence path it survives restarts; without one it is in-memory,
// which the tests rely on.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore creates a chromem-backed store.
func NewChromemStore(cfg Config) (*ChromemStore, error) {
	var db *chromem.DB
	var err error

	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, true)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db at %s: %w", cfg.Path, err)
		}
	} else {
		db = chromem.NewDB()
	}

	// Documents always arrive with precomputed embeddings; the
	// embedding func exists only to fail loudly if that changes.
	embeddingFunc := chromem.EmbeddingFunc(func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("%w: store requires precomputed embeddings", ErrInvalidConfig)
	})

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.Collection, err)
	}

	return &ChromemStore{db: db, collection: collection}, nil
}

// Add upserts labeled embeddings.
func (s *ChromemStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		if rec.ErrorID == "" {
			return fmt.Errorf("%w: record %d has no error ID", ErrInvalidConfig, i)
		}
		content := rec.Text
		if content == "" {
			content = rec.Cause
		}
		docs[i] = chromem.Document{
			ID:      rec.ErrorID,
			Content: content,
			Metadata: map[string]string{
				"cause": rec.Cause,
			},
			Embedding: rec.Embedding,
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("%w: adding documents: %v", ErrStoreFailed, err)
	}
	return nil
}

// Query returns the top-k most similar records.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int) ([]Match, error) {
	count := s.collection.Count()
	if count == 0 {
		return []Match{}, nil
	}
	if k > count {
		k = count
	}
	if k <= 0 {
		k = 1
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", ErrStoreFailed, err)
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		matches = append(matches, Match{
			ErrorID:    res.ID,
			Cause:      res.Metadata["cause"],
			Similarity: res.Similarity,
		})
	}
	return matches, nil
}

// Count returns the number of stored embeddings.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Delete removes records by error ID.
func (s *ChromemStore) Delete(ctx context.Context, errorIDs []string) error {
	if len(errorIDs) == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, errorIDs...); err != nil {
		return fmt.Errorf("%w: deleting: %v", ErrStoreFailed, err)
	}
	return nil
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}
