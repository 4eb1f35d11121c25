// Package similarity finds historically resolved errors semantically
// close to a new error and derives a probable-cause distribution from
// their labels.
package similarity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/cache"
	"github.com/fyrsmithlabs/faultd/internal/embeddings"
	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/simstore"
)

// DefaultTopK is the default number of neighbors considered.
const DefaultTopK = 10

// Analysis is the result of a similarity lookup: the ranked matches and
// the cause distribution they imply. Both are empty when the store has
// no history yet; callers must treat that as "no signal", not an error.
type Analysis struct {
	Matches      []simstore.Match   `json:"matches"`
	Distribution map[string]float64 `json:"distribution"`
}

// Retriever performs embedding-based nearest-neighbor retrieval over
// the historical embedding store.
type Retriever struct {
	provider embeddings.Provider
	store    simstore.Store
	cache    *cache.Cache
	topK     int
	logger   *zap.Logger
}

// NewRetriever creates a retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(provider embeddings.Provider, store simstore.Store, c *cache.Cache, topK int, logger *zap.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retriever{
		provider: provider,
		store:    store,
		cache:    c,
		topK:     topK,
		logger:   logger,
	}
}

// Index embeds historical labeled records and adds them to the store.
// Records and causes are parallel slices.
func (r *Retriever) Index(ctx context.Context, records []errordata.ErrorRecord, causes []string) error {
	if len(records) != len(causes) {
		return fmt.Errorf("records/causes length mismatch: %d vs %d", len(records), len(causes))
	}
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = embeddings.PreprocessRecord(rec)
	}

	vectors, err := r.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d records: %w", len(records), err)
	}

	storeRecords := make([]simstore.Record, len(records))
	for i, rec := range records {
		storeRecords[i] = simstore.Record{
			ErrorID:   rec.ID,
			Cause:     causes[i],
			Text:      texts[i],
			Embedding: vectors[i],
		}
	}

	if err := r.store.Add(ctx, storeRecords); err != nil {
		return fmt.Errorf("storing embeddings: %w", err)
	}

	r.logger.Info("indexed labeled embeddings", zap.Int("count", len(records)))
	return nil
}

// Analyze embeds the record, finds the topK most similar historical
// errors, and derives a similarity-weighted cause distribution.
// Results are cached per error ID.
func (r *Retriever) Analyze(ctx context.Context, rec errordata.ErrorRecord) (*Analysis, error) {
	cacheKey := cache.Key("similarity", rec.ID)
	if r.cache != nil && rec.ID != "" {
		if v, ok := r.cache.Get(cacheKey); ok {
			if analysis, ok := v.(*Analysis); ok {
				return analysis, nil
			}
		}
	}

	embedding, err := r.provider.EmbedQuery(ctx, embeddings.PreprocessRecord(rec))
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.store.Query(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("querying store: %w", err)
	}

	analysis := &Analysis{
		Matches:      matches,
		Distribution: causeDistribution(matches),
	}

	if r.cache != nil && rec.ID != "" {
		r.cache.Set(cacheKey, analysis)
	}
	return analysis, nil
}

// causeDistribution weights each matched cause by its similarity score,
// sums weights per distinct cause, and normalizes by the total weight.
// Non-positive similarities contribute nothing.
func causeDistribution(matches []simstore.Match) map[string]float64 {
	dist := make(map[string]float64)

	var total float64
	for _, m := range matches {
		if m.Cause == "" || m.Similarity <= 0 {
			continue
		}
		dist[m.Cause] += float64(m.Similarity)
		total += float64(m.Similarity)
	}

	if total == 0 {
		return map[string]float64{}
	}
	for cause := range dist {
		dist[cause] /= total
	}
	return dist
}
