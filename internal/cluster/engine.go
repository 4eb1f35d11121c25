// Package cluster groups errors in embedding space with seeded k-means
// and assigns new errors to the nearest cluster centroid.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/embeddings"
	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

var (
	// ErrNoClusters is returned by Assign before the first successful
	// Recompute.
	ErrNoClusters = errors.New("no clusters computed yet")

	// ErrTooFewSamples is returned when the batch is below the
	// configured minimum.
	ErrTooFewSamples = errors.New("too few samples for clustering")
)

// Cluster is one group of related errors produced by a clustering run.
// Centroid is the geometric centroid returned by k-means; the semantic
// centroid is the mean of the members' embeddings and may diverge
// slightly from it after iterative refinement.
type Cluster struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Centroid         []float64 `json:"centroid"`
	SemanticCentroid []float64 `json:"semantic_centroid"`
	DominantTypes    []string  `json:"dominant_types"`
	SampleMessages   []string  `json:"sample_messages"`
	Size             int       `json:"size"`
	MemberIDs        []string  `json:"member_ids"`
}

// Assignment is the result of placing a new error into an existing
// cluster.
type Assignment struct {
	ClusterID   string  `json:"cluster_id"`
	ClusterName string  `json:"cluster_name"`
	Distance    float64 `json:"distance"`
	Confidence  float64 `json:"confidence"`
}

// Config controls clustering behavior.
type Config struct {
	Seed          int64
	MaxIterations int
	MinClusters   int
	MaxClusters   int
	MinSamples    int
	MaxBatch      int
}

func (c *Config) applyDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 100
	}
	if c.MinClusters <= 0 {
		c.MinClusters = 3
	}
	if c.MaxClusters <= 0 {
		c.MaxClusters = 15
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 10
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 1000
	}
}

// Engine runs full clustering recomputes and nearest-centroid
// assignment. Recompute replaces the entire cluster set; prior cluster
// IDs are not preserved across runs.
type Engine struct {
	provider embeddings.Provider
	cfg      Config
	logger   *zap.Logger
	metrics  *Metrics

	mu       sync.RWMutex
	clusters []Cluster
}

// NewEngine creates a clustering engine around an embedding provider.
func NewEngine(provider embeddings.Provider, cfg Config, logger *zap.Logger) *Engine {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		metrics:  newMetrics(),
	}
}

// Clusters returns the current cluster set. Empty before the first
// Recompute.
func (e *Engine) Clusters() []Cluster {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Cluster, len(e.clusters))
	copy(out, e.clusters)
	return out
}

// SetClusters installs a previously persisted cluster set.
func (e *Engine) SetClusters(clusters []Cluster) {
	e.mu.Lock()
	e.clusters = clusters
	e.mu.Unlock()
}

// heuristicK derives the cluster count as round(sqrt(n/2)), clamped to
// the configured range.
func (e *Engine) heuristicK(n int) int {
	k := int(math.Round(math.Sqrt(float64(n) / 2)))
	if k < e.cfg.MinClusters {
		k = e.cfg.MinClusters
	}
	if k > e.cfg.MaxClusters {
		k = e.cfg.MaxClusters
	}
	return k
}

// Recompute embeds the batch, runs k-means, and atomically replaces the
// cluster set. numClusters <= 0 selects the heuristic count.
func (e *Engine) Recompute(ctx context.Context, records []errordata.ErrorRecord, numClusters int) ([]Cluster, error) {
	start := time.Now()

	if len(records) < e.cfg.MinSamples {
		return nil, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewSamples, len(records), e.cfg.MinSamples)
	}
	if len(records) > e.cfg.MaxBatch {
		return nil, fmt.Errorf("batch of %d exceeds maximum of %d", len(records), e.cfg.MaxBatch)
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = embeddings.PreprocessRecord(rec)
	}
	vectors, err := e.provider.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d: %w", len(records), err)
	}

	data := make([][]float64, len(vectors))
	for i, v := range vectors {
		data[i] = toFloat64(v)
	}

	k := numClusters
	if k <= 0 {
		k = e.heuristicK(len(records))
	}
	if k > len(records) {
		k = len(records)
	}

	rng := rand.New(rand.NewSource(e.cfg.Seed))
	centroids, assignments := kMeans(data, k, e.cfg.MaxIterations, rng)

	clusters := buildClusters(records, data, centroids, assignments)

	e.mu.Lock()
	e.clusters = clusters
	e.mu.Unlock()

	e.metrics.RecordRecompute(ctx, len(records), len(clusters), time.Since(start))
	e.logger.Info("recomputed clusters",
		zap.Int("records", len(records)),
		zap.Int("clusters", len(clusters)),
		zap.Duration("duration", time.Since(start)))

	return e.Clusters(), nil
}

// Assign places a new error into the nearest existing cluster by cosine
// distance to the geometric centroid.
func (e *Engine) Assign(ctx context.Context, rec errordata.ErrorRecord) (*Assignment, error) {
	clusters := e.Clusters()
	if len(clusters) == 0 {
		return nil, ErrNoClusters
	}

	vector, err := e.provider.EmbedQuery(ctx, embeddings.PreprocessRecord(rec))
	if err != nil {
		return nil, fmt.Errorf("embedding record: %w", err)
	}
	point := toFloat64(vector)

	best := -1
	bestDist := math.MaxFloat64
	for i, c := range clusters {
		dist := 1 - cosineSimilarity(point, c.Centroid)
		if dist < bestDist {
			bestDist = dist
			best = i
		}
	}

	return &Assignment{
		ClusterID:   clusters[best].ID,
		ClusterName: clusters[best].Name,
		Distance:    bestDist,
		Confidence:  math.Max(0, 1-bestDist),
	}, nil
}

// buildClusters groups records by their k-means assignment and derives
// per-cluster metadata. Empty clusters are dropped.
func buildClusters(records []errordata.ErrorRecord, data [][]float64, centroids [][]float64, assignments []int) []Cluster {
	members := make(map[int][]int)
	for i, c := range assignments {
		members[c] = append(members[c], i)
	}

	indices := make([]int, 0, len(members))
	for c := range members {
		indices = append(indices, c)
	}
	sort.Ints(indices)

	clusters := make([]Cluster, 0, len(indices))
	for _, ci := range indices {
		idx := members[ci]

		memberIDs := make([]string, 0, len(idx))
		memberVectors := make([][]float64, 0, len(idx))
		typeCounts := make(map[string]int)
		messageCounts := make(map[string]int)
		for _, i := range idx {
			memberIDs = append(memberIDs, records[i].ID)
			memberVectors = append(memberVectors, data[i])
			typeCounts[records[i].Type]++
			messageCounts[records[i].Message]++
		}

		dominantTypes := topKeys(typeCounts, 3)
		sampleMessages := topKeys(messageCounts, 3)

		name := "Unknown errors"
		if len(dominantTypes) > 0 {
			name = dominantTypes[0]
			if len(sampleMessages) > 0 {
				name = fmt.Sprintf("%s: %s", dominantTypes[0], truncate(sampleMessages[0], 60))
			}
		}

		clusters = append(clusters, Cluster{
			ID:               uuid.NewString(),
			Name:             name,
			Description:      fmt.Sprintf("%d errors dominated by %s", len(idx), joinOr(dominantTypes)),
			Centroid:         centroids[ci],
			SemanticCentroid: meanVector(memberVectors),
			DominantTypes:    dominantTypes,
			SampleMessages:   sampleMessages,
			Size:             len(idx),
			MemberIDs:        memberIDs,
		})
	}
	return clusters
}

// topKeys returns up to limit keys ordered by descending count, ties
// broken alphabetically for determinism.
func topKeys(counts map[string]int, limit int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// truncate shortens s to at most max bytes without splitting a UTF-8
// sequence.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func joinOr(keys []string) string {
	switch len(keys) {
	case 0:
		return "unknown types"
	case 1:
		return keys[0]
	default:
		return fmt.Sprintf("%s and %d more", keys[0], len(keys)-1)
	}
}
