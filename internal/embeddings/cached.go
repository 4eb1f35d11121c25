package embeddings

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/cache"
)

// CachedProvider decorates a Provider with the shared TTL cache, keyed
// by a content hash of the input text. Concurrent misses for the same
// text may both invoke the inner provider; the cache is last-writer-wins,
// which is harmless since embeddings are deterministic per text.
type CachedProvider struct {
	inner   Provider
	cache   *cache.Cache
	model   string
	logger  *zap.Logger
	metrics *Metrics
}

// NewCachedProvider wraps a provider with caching.
func NewCachedProvider(inner Provider, c *cache.Cache, model string, logger *zap.Logger) *CachedProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProvider{
		inner:   inner,
		cache:   c,
		model:   model,
		logger:  logger,
		metrics: NewMetrics(logger),
	}
}

func embedKey(text string) string {
	return cache.Key("embedding", text)
}

// EmbedDocuments returns embeddings for the texts, generating only the
// cache misses in one batched call to the inner provider.
func (p *CachedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, p.model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = ErrEmptyInput
		return nil, genErr
	}

	results := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if v, ok := p.cache.Get(embedKey(text)); ok {
			if vec, ok := v.([]float32); ok {
				results[i] = vec
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) > 0 {
		vectors, err := p.inner.EmbedDocuments(ctx, missTexts)
		if err != nil {
			genErr = err
			return nil, err
		}
		for j, vec := range vectors {
			results[missIdx[j]] = vec
			p.cache.Set(embedKey(missTexts[j]), vec)
		}
	}

	return results, nil
}

// EmbedQuery returns the embedding for a single text, cache-checked
// first.
func (p *CachedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, p.model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = ErrEmptyInput
		return nil, genErr
	}

	if v, ok := p.cache.Get(embedKey(text)); ok {
		if vec, ok := v.([]float32); ok {
			return vec, nil
		}
	}

	vec, err := p.inner.EmbedQuery(ctx, text)
	if err != nil {
		genErr = err
		return nil, err
	}
	p.cache.Set(embedKey(text), vec)
	return vec, nil
}

// Dimension returns the inner provider's embedding dimension.
func (p *CachedProvider) Dimension() int { return p.inner.Dimension() }

// Close closes the inner provider. The cache is shared and owned by
// the caller.
func (p *CachedProvider) Close() error { return p.inner.Close() }
