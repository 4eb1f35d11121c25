package config

import (
	"time"

	"github.com/fyrsmithlabs/faultd/internal/logging"
)

// Config is the root configuration for faultd.
type Config struct {
	Logging     logging.Config    `koanf:"logging"`
	Cache       CacheConfig       `koanf:"cache"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	Store       StoreConfig       `koanf:"store"`
	Similarity  SimilarityConfig  `koanf:"similarity"`
	Classifier  ClassifierConfig  `koanf:"classifier"`
	Clustering  ClusteringConfig  `koanf:"clustering"`
	Ensemble    EnsembleConfig    `koanf:"ensemble"`
	Persistence PersistenceConfig `koanf:"persistence"`
}

// CacheConfig controls the shared TTL cache.
type CacheConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// EmbeddingsConfig controls the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" (local ONNX, default) or "tei".
	Provider string `koanf:"provider"`

	// Model is the embedding model name.
	Model string `koanf:"model"`

	// BaseURL is the TEI endpoint (TEI provider only).
	BaseURL string `koanf:"base_url"`

	// CacheDir caches downloaded model files (FastEmbed only).
	CacheDir string `koanf:"cache_dir"`
}

// StoreConfig controls the historical embedding store backend.
type StoreConfig struct {
	// Provider is "chromem" (embedded, default) or "qdrant".
	Provider string `koanf:"provider"`

	// Path is the chromem persistence directory. Empty means in-memory.
	Path string `koanf:"path"`

	// Collection is the store collection name.
	Collection string `koanf:"collection"`

	// VectorSize must match the embedding model dimension.
	VectorSize int `koanf:"vector_size"`

	Qdrant QdrantConfig `koanf:"qdrant"`
}

// QdrantConfig holds connection settings for the Qdrant backend.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// SimilarityConfig controls the similarity retriever.
type SimilarityConfig struct {
	// TopK is the number of nearest historical errors considered per
	// query. Independent of the ensemble's ranked-output cap.
	TopK int `koanf:"top_k"`
}

// ClassifierConfig controls the statistical and KNN classifiers.
type ClassifierConfig struct {
	HiddenSizes  []int   `koanf:"hidden_sizes"`
	Dropout      float64 `koanf:"dropout"`
	LearningRate float64 `koanf:"learning_rate"`
	Epochs       int     `koanf:"epochs"`
	BatchSize    int     `koanf:"batch_size"`
	Seed         int64   `koanf:"seed"`
	MinSamples   int     `koanf:"min_samples"`
	KNNNeighbors int     `koanf:"knn_neighbors"`
}

// ClusteringConfig controls the clustering engine.
type ClusteringConfig struct {
	Seed          int64 `koanf:"seed"`
	MaxIterations int   `koanf:"max_iterations"`
	MinClusters   int   `koanf:"min_clusters"`
	MaxClusters   int   `koanf:"max_clusters"`
	MinSamples    int   `koanf:"min_samples"`
	MaxBatch      int   `koanf:"max_batch"`
}

// EnsembleConfig holds the fusion policy. The weights and the agreement
// threshold are tunable policy, not learned parameters.
type EnsembleConfig struct {
	StatisticalWeight  float64 `koanf:"statistical_weight"`
	KNNWeight          float64 `koanf:"knn_weight"`
	SimilarityWeight   float64 `koanf:"similarity_weight"`
	AgreementThreshold float64 `koanf:"agreement_threshold"`
	ProbabilityFloor   float64 `koanf:"probability_floor"`
	TopK               int     `koanf:"top_k"`
}

// PersistenceConfig controls where model blobs are stored.
type PersistenceConfig struct {
	// Dir is the directory holding persisted models, groups, and
	// cluster snapshots.
	Dir string `koanf:"dir"`
}
