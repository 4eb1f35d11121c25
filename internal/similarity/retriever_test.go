package similarity

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/faultd/internal/cache"
	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/simstore"
)

// axisProvider maps texts onto fixed axes so similarity is predictable:
// network-ish texts embed near [1,0,0], validation-ish near [0,1,0].
type axisProvider struct {
	mu    sync.Mutex
	calls int
}

func (p *axisProvider) embed(text string) []float32 {
	switch {
	case strings.Contains(strings.ToLower(text), "network"),
		strings.Contains(strings.ToLower(text), "timeout"):
		return []float32{1, 0.05, 0}
	case strings.Contains(strings.ToLower(text), "valid"):
		return []float32{0.05, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (p *axisProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embed(text)
	}
	return out, nil
}

func (p *axisProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.embed(text), nil
}

func (p *axisProvider) Dimension() int { return 3 }
func (p *axisProvider) Close() error   { return nil }

func newTestRetriever(t *testing.T) (*Retriever, *cache.Cache) {
	t.Helper()
	store, err := simstore.NewStore(context.Background(), simstore.Config{
		Collection: "similarity_test",
		VectorSize: 3,
	})
	require.NoError(t, err)

	c := cache.New(time.Minute, 100, nil)
	t.Cleanup(func() {
		c.Stop()
		_ = store.Close()
	})

	return NewRetriever(&axisProvider{}, store, c, 5, nil), c
}

func historicalRecord(id, errType, msg string) errordata.ErrorRecord {
	return errordata.ErrorRecord{ID: id, Type: errType, Message: msg}
}

func TestRetriever_EmptyStoreReturnsNoSignal(t *testing.T) {
	r, _ := newTestRetriever(t)

	analysis, err := r.Analyze(context.Background(), historicalRecord("q1", "NetworkError", "network down"))
	require.NoError(t, err)
	assert.Empty(t, analysis.Matches)
	assert.Empty(t, analysis.Distribution)
}

func TestRetriever_IndexAndAnalyze(t *testing.T) {
	r, _ := newTestRetriever(t)
	ctx := context.Background()

	records := []errordata.ErrorRecord{
		historicalRecord("h1", "NetworkError", "network request timeout"),
		historicalRecord("h2", "NetworkError", "network unreachable"),
		historicalRecord("h3", "ValidationError", "invalid email"),
	}
	causes := []string{"NetworkError", "NetworkError", "ValidationError"}
	require.NoError(t, r.Index(ctx, records, causes))

	analysis, err := r.Analyze(ctx, historicalRecord("q1", "NetworkError", "network gateway timeout"))
	require.NoError(t, err)
	require.NotEmpty(t, analysis.Matches)

	// Most similar matches are the network errors.
	assert.Equal(t, "NetworkError", analysis.Matches[0].Cause)

	// Distribution is normalized and dominated by NetworkError.
	var total float64
	for _, p := range analysis.Distribution {
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, analysis.Distribution["NetworkError"], analysis.Distribution["ValidationError"])
}

func TestRetriever_SimilarityBounds(t *testing.T) {
	r, _ := newTestRetriever(t)
	ctx := context.Background()

	require.NoError(t, r.Index(ctx,
		[]errordata.ErrorRecord{historicalRecord("h1", "NetworkError", "network timeout")},
		[]string{"NetworkError"}))

	analysis, err := r.Analyze(ctx, historicalRecord("q1", "NetworkError", "network timeout"))
	require.NoError(t, err)
	require.Len(t, analysis.Matches, 1)

	sim := analysis.Matches[0].Similarity
	assert.GreaterOrEqual(t, sim, float32(-1))
	assert.LessOrEqual(t, sim, float32(1.00001))
	// Identical text embeds identically, so similarity is ~1.
	assert.InDelta(t, 1.0, float64(sim), 1e-5)
}

func TestRetriever_CachesPerErrorID(t *testing.T) {
	r, c := newTestRetriever(t)
	ctx := context.Background()

	require.NoError(t, r.Index(ctx,
		[]errordata.ErrorRecord{historicalRecord("h1", "NetworkError", "network timeout")},
		[]string{"NetworkError"}))

	query := historicalRecord("q1", "NetworkError", "network failure")
	first, err := r.Analyze(ctx, query)
	require.NoError(t, err)

	statsBefore := c.Stats()
	second, err := r.Analyze(ctx, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Greater(t, c.Stats().Hits, statsBefore.Hits)
}

func TestRetriever_IndexLengthMismatch(t *testing.T) {
	r, _ := newTestRetriever(t)
	err := r.Index(context.Background(), []errordata.ErrorRecord{historicalRecord("h1", "A", "b")}, nil)
	assert.Error(t, err)
}
