// Package config provides configuration loading for faultd.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 5000
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}

	if cfg.Store.Provider == "" {
		cfg.Store.Provider = "chromem"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "faultd_embeddings"
	}
	if cfg.Store.VectorSize == 0 {
		cfg.Store.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}
	if cfg.Store.Qdrant.Host == "" {
		cfg.Store.Qdrant.Host = "localhost"
	}
	if cfg.Store.Qdrant.Port == 0 {
		cfg.Store.Qdrant.Port = 6334
	}

	if len(cfg.Classifier.HiddenSizes) == 0 {
		cfg.Classifier.HiddenSizes = []int{64, 32}
	}
	if cfg.Classifier.Dropout == 0 {
		cfg.Classifier.Dropout = 0.2
	}
	if cfg.Classifier.LearningRate == 0 {
		cfg.Classifier.LearningRate = 0.01
	}
	if cfg.Classifier.Epochs == 0 {
		cfg.Classifier.Epochs = 60
	}
	if cfg.Classifier.BatchSize == 0 {
		cfg.Classifier.BatchSize = 16
	}
	if cfg.Classifier.Seed == 0 {
		cfg.Classifier.Seed = 42
	}
	if cfg.Classifier.MinSamples == 0 {
		cfg.Classifier.MinSamples = 10
	}
	if cfg.Classifier.KNNNeighbors == 0 {
		cfg.Classifier.KNNNeighbors = 5
	}

	if cfg.Clustering.Seed == 0 {
		cfg.Clustering.Seed = 42
	}
	if cfg.Clustering.MaxIterations == 0 {
		cfg.Clustering.MaxIterations = 100
	}
	if cfg.Clustering.MinClusters == 0 {
		cfg.Clustering.MinClusters = 3
	}
	if cfg.Clustering.MaxClusters == 0 {
		cfg.Clustering.MaxClusters = 15
	}
	if cfg.Clustering.MinSamples == 0 {
		cfg.Clustering.MinSamples = 10
	}
	if cfg.Clustering.MaxBatch == 0 {
		cfg.Clustering.MaxBatch = 1000
	}

	if cfg.Ensemble.StatisticalWeight == 0 && cfg.Ensemble.KNNWeight == 0 && cfg.Ensemble.SimilarityWeight == 0 {
		cfg.Ensemble.StatisticalWeight = 0.5
		cfg.Ensemble.KNNWeight = 0.2
		cfg.Ensemble.SimilarityWeight = 0.3
	}
	if cfg.Ensemble.AgreementThreshold == 0 {
		cfg.Ensemble.AgreementThreshold = 0.2
	}
	if cfg.Ensemble.ProbabilityFloor == 0 {
		cfg.Ensemble.ProbabilityFloor = 0.05
	}
	if cfg.Ensemble.TopK == 0 {
		cfg.Ensemble.TopK = 5
	}

	if cfg.Similarity.TopK == 0 {
		cfg.Similarity.TopK = 10
	}

	if cfg.Persistence.Dir == "" {
		cfg.Persistence.Dir = defaultDataDir()
	}

	// The chromem store must persist by default so embeddings indexed
	// by one invocation survive into the next; in-memory is opt-in via
	// an explicit "store.path: :memory:".
	if cfg.Store.Provider == "chromem" {
		switch cfg.Store.Path {
		case "":
			cfg.Store.Path = filepath.Join(cfg.Persistence.Dir, "embeddings")
		case ":memory:":
			cfg.Store.Path = ""
		}
	}
}

// defaultDataDir resolves the default persistence directory under the
// user's home. Tilde is not expanded by the OS, so the path is built
// from os.UserHomeDir; when no home is available the data lands in the
// working directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "faultd-data"
	}
	return filepath.Join(home, ".local", "share", "faultd")
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		return fmt.Errorf("embeddings: unknown provider %q", c.Embeddings.Provider)
	}

	switch c.Store.Provider {
	case "chromem", "qdrant":
	default:
		return fmt.Errorf("store: unknown provider %q", c.Store.Provider)
	}
	if c.Store.VectorSize <= 0 {
		return fmt.Errorf("store: vector_size must be positive")
	}

	if c.Similarity.TopK <= 0 {
		return fmt.Errorf("similarity: top_k must be positive")
	}

	if c.Classifier.Dropout < 0 || c.Classifier.Dropout >= 1 {
		return fmt.Errorf("classifier: dropout must be in [0, 1)")
	}
	if c.Classifier.KNNNeighbors <= 0 {
		return fmt.Errorf("classifier: knn_neighbors must be positive")
	}

	if c.Clustering.MinClusters > c.Clustering.MaxClusters {
		return fmt.Errorf("clustering: min_clusters %d exceeds max_clusters %d",
			c.Clustering.MinClusters, c.Clustering.MaxClusters)
	}

	weightSum := c.Ensemble.StatisticalWeight + c.Ensemble.KNNWeight + c.Ensemble.SimilarityWeight
	if math.Abs(weightSum-1.0) > 1e-6 {
		return fmt.Errorf("ensemble: weights must sum to 1, got %v", weightSum)
	}
	if c.Ensemble.AgreementThreshold <= 0 || c.Ensemble.AgreementThreshold >= 1 {
		return fmt.Errorf("ensemble: agreement_threshold must be in (0, 1)")
	}
	if c.Ensemble.ProbabilityFloor < 0 || c.Ensemble.ProbabilityFloor >= 1 {
		return fmt.Errorf("ensemble: probability_floor must be in [0, 1)")
	}

	return nil
}
