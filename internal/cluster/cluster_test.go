package cluster

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

// clusterStubProvider embeds texts near fixed axes with a small
// text-derived jitter so every record gets a distinct but deterministic
// vector.
type clusterStubProvider struct{}

func (clusterStubProvider) embed(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	jitter := float32(h.Sum32()%100) / 1000

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "network"), strings.Contains(lower, "timeout"):
		return []float32{1, jitter, 0}
	case strings.Contains(lower, "valid"):
		return []float32{jitter, 1, 0}
	default:
		return []float32{0, jitter, 1}
	}
}

func (p clusterStubProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = p.embed(text)
	}
	return out, nil
}

func (p clusterStubProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return p.embed(text), nil
}

func (clusterStubProvider) Dimension() int { return 3 }
func (clusterStubProvider) Close() error   { return nil }

func newTestEngine() *Engine {
	return NewEngine(clusterStubProvider{}, Config{
		Seed:        42,
		MinClusters: 2,
		MinSamples:  4,
	}, nil)
}

func twoCauseBatch(perCause int) []errordata.ErrorRecord {
	records := make([]errordata.ErrorRecord, 0, 2*perCause)
	for i := 0; i < perCause; i++ {
		records = append(records, errordata.ErrorRecord{
			ID:      "net-" + string(rune('a'+i)),
			Type:    "NetworkError",
			Message: "network request failed " + string(rune('a'+i)),
		})
		records = append(records, errordata.ErrorRecord{
			ID:      "val-" + string(rune('a'+i)),
			Type:    "ValidationError",
			Message: "invalid field " + string(rune('a'+i)),
		})
	}
	return records
}

func TestEngine_TwoWellSeparatedClusters(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	clusters, err := e.Recompute(ctx, twoCauseBatch(10), 2)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	types := make(map[string]int)
	for _, c := range clusters {
		require.NotEmpty(t, c.MemberIDs)
		require.Len(t, c.DominantTypes, 1)
		assert.Equal(t, len(c.MemberIDs), c.Size)
		assert.Len(t, c.Centroid, 3)
		assert.Len(t, c.SemanticCentroid, 3)
		types[c.DominantTypes[0]]++
	}
	assert.Equal(t, 1, types["NetworkError"])
	assert.Equal(t, 1, types["ValidationError"])
}

func TestEngine_Determinism(t *testing.T) {
	ctx := context.Background()
	batch := twoCauseBatch(8)

	first, err := newTestEngine().Recompute(ctx, batch, 3)
	require.NoError(t, err)
	second, err := newTestEngine().Recompute(ctx, batch, 3)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		// Cluster IDs are regenerated, but the partition and metadata
		// must be identical.
		assert.Equal(t, first[i].MemberIDs, second[i].MemberIDs)
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Centroid, second[i].Centroid)
	}
}

func TestEngine_HeuristicClusterCount(t *testing.T) {
	e := NewEngine(clusterStubProvider{}, Config{Seed: 1}, nil)

	assert.Equal(t, 3, e.heuristicK(10))   // sqrt(5) rounds to 2, clamped up
	assert.Equal(t, 5, e.heuristicK(50))   // sqrt(25) = 5
	assert.Equal(t, 15, e.heuristicK(900)) // sqrt(450) ~ 21, clamped down
}

func TestEngine_AssignmentConsistency(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	batch := twoCauseBatch(10)
	clusters, err := e.Recompute(ctx, batch, 2)
	require.NoError(t, err)

	byMember := make(map[string]string)
	for _, c := range clusters {
		for _, id := range c.MemberIDs {
			byMember[id] = c.ID
		}
	}

	// Assigning a training-set member back yields its original cluster.
	for _, rec := range batch {
		assignment, err := e.Assign(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, byMember[rec.ID], assignment.ClusterID, "record %s", rec.ID)
		assert.GreaterOrEqual(t, assignment.Confidence, 0.0)
		assert.LessOrEqual(t, assignment.Confidence, 1.0)
	}
}

func TestEngine_AssignBeforeRecompute(t *testing.T) {
	e := newTestEngine()
	_, err := e.Assign(context.Background(), errordata.ErrorRecord{Type: "NetworkError"})
	assert.ErrorIs(t, err, ErrNoClusters)
}

func TestEngine_TooFewSamples(t *testing.T) {
	e := newTestEngine()
	_, err := e.Recompute(context.Background(), twoCauseBatch(1), 2)
	assert.ErrorIs(t, err, ErrTooFewSamples)
}

func TestEngine_BatchTooLarge(t *testing.T) {
	e := NewEngine(clusterStubProvider{}, Config{Seed: 1, MinSamples: 2, MaxBatch: 10}, nil)
	_, err := e.Recompute(context.Background(), twoCauseBatch(6), 2)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooFewSamples)
}

func TestTruncate_RespectsRuneBoundaries(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))

	// "é" is two bytes; cutting at max=3 inside it must back up to the
	// previous boundary instead of emitting a broken sequence.
	got := truncate("abécdef", 3)
	assert.True(t, utf8.ValidString(got), "truncated string %q is not valid UTF-8", got)
	assert.Equal(t, "ab...", got)

	long := strings.Repeat("ü", 40)
	got = truncate(long, 9)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("ü", 4)+"...", got)
}

func TestEngine_SetClustersRestoresAssignment(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()

	clusters, err := e.Recompute(ctx, twoCauseBatch(8), 2)
	require.NoError(t, err)

	restored := newTestEngine()
	restored.SetClusters(clusters)

	rec := errordata.ErrorRecord{ID: "new", Type: "NetworkError", Message: "network connection timeout"}
	a1, err := e.Assign(ctx, rec)
	require.NoError(t, err)
	a2, err := restored.Assign(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, a1.ClusterID, a2.ClusterID)
}
