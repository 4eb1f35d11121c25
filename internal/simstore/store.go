// Package simstore stores historical error embeddings with their
// probable-cause labels and serves cosine-similarity queries over them.
//
// Two backends are available behind the factory: an embedded chromem
// store (default, optionally persisted to disk) and an external Qdrant
// instance over gRPC.
package simstore

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreFailed indicates a backend operation failure.
	ErrStoreFailed = errors.New("embedding store operation failed")
)

// Record is one historical labeled embedding.
type Record struct {
	// ErrorID identifies the source error record.
	ErrorID string

	// Cause is the resolved probable-cause label.
	Cause string

	// Text is the preprocessed error text the embedding was generated
	// from. Kept for inspection and re-embedding.
	Text string

	// Embedding is the fixed-length vector.
	Embedding []float32
}

// Match is one similarity search result.
type Match struct {
	ErrorID    string  `json:"error_id"`
	Cause      string  `json:"cause"`
	Similarity float32 `json:"similarity"`
}

// Store is the interface for the historical embedding store.
type Store interface {
	// Add upserts labeled embeddings. Re-adding an error ID replaces
	// its previous entry.
	Add(ctx context.Context, records []Record) error

	// Query returns up to k records most similar to the embedding,
	// ordered by cosine similarity descending. An empty store returns
	// an empty result, not an error.
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int, error)

	// Delete removes records by error ID.
	Delete(ctx context.Context, errorIDs []string) error

	// Close releases backend resources.
	Close() error
}

// Config selects and configures a store backend.
type Config struct {
	// Provider is "chromem" (default) or "qdrant".
	Provider string

	// Path is the chromem persistence directory. Empty means in-memory.
	Path string

	// Collection is the collection name.
	Collection string

	// VectorSize is the embedding dimension.
	VectorSize int

	// Qdrant holds connection settings for the qdrant provider.
	Qdrant QdrantConfig
}

// NewStore creates a store backend from config.
func NewStore(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}

	switch cfg.Provider {
	case "chromem", "":
		return NewChromemStore(cfg)
	case "qdrant":
		return NewQdrantStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
