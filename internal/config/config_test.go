package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5000, cfg.Cache.MaxEntries)
	assert.Equal(t, "fastembed", cfg.Embeddings.Provider)
	assert.Equal(t, "chromem", cfg.Store.Provider)
	assert.Equal(t, 384, cfg.Store.VectorSize)
	assert.Equal(t, 0.5, cfg.Ensemble.StatisticalWeight)
	assert.Equal(t, 0.2, cfg.Ensemble.KNNWeight)
	assert.Equal(t, 0.3, cfg.Ensemble.SimilarityWeight)
	assert.Equal(t, 0.2, cfg.Ensemble.AgreementThreshold)
	assert.Equal(t, 0.05, cfg.Ensemble.ProbabilityFloor)
	assert.Equal(t, 3, cfg.Clustering.MinClusters)
	assert.Equal(t, 15, cfg.Clustering.MaxClusters)
	assert.Equal(t, 5, cfg.Classifier.KNNNeighbors)
	assert.Equal(t, 10, cfg.Similarity.TopK)

	require.NoError(t, cfg.Validate())
}

func TestDefault_PersistenceDirIsAbsolute(t *testing.T) {
	cfg := Default()

	// Tilde is not expanded by the OS; the default must be built from
	// the real home directory so blobs never land in a literal "~".
	assert.NotContains(t, cfg.Persistence.Dir, "~")
	assert.True(t, filepath.IsAbs(cfg.Persistence.Dir), "persistence dir %q is not absolute", cfg.Persistence.Dir)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "faultd"), cfg.Persistence.Dir)
}

func TestDefault_ChromemStorePersists(t *testing.T) {
	cfg := Default()

	// Embeddings indexed by train must survive into the next predict
	// invocation, so the default chromem store is on disk.
	assert.Equal(t, filepath.Join(cfg.Persistence.Dir, "embeddings"), cfg.Store.Path)
}

func TestApplyDefaults_ExplicitInMemoryStore(t *testing.T) {
	var cfg Config
	cfg.Store.Path = ":memory:"
	applyDefaults(&cfg)

	assert.Empty(t, cfg.Store.Path)
}

func TestApplyDefaults_ExplicitStorePathKept(t *testing.T) {
	var cfg Config
	cfg.Store.Path = "/var/lib/faultd/embeddings"
	applyDefaults(&cfg)

	assert.Equal(t, "/var/lib/faultd/embeddings", cfg.Store.Path)
}

func TestApplyDefaults_QdrantStoreHasNoPath(t *testing.T) {
	var cfg Config
	cfg.Store.Provider = "qdrant"
	applyDefaults(&cfg)

	assert.Empty(t, cfg.Store.Path)
}

func TestLoadWithFile_YAMLAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("cache:\n  max_entries: 100\nensemble:\n  statistical_weight: 0.4\n  knn_weight: 0.3\n  similarity_weight: 0.3\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Cache.MaxEntries)
	assert.Equal(t, 0.4, cfg.Ensemble.StatisticalWeight)
	// Untouched fields fall back to defaults.
	assert.Equal(t, "chromem", cfg.Store.Provider)
}

func TestLoadWithFile_EnvOverride(t *testing.T) {
	t.Setenv("FAULTD_STORE_PROVIDER", "qdrant")
	t.Setenv("FAULTD_STORE_VECTOR_SIZE", "768")

	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "qdrant", cfg.Store.Provider)
	assert.Equal(t, 768, cfg.Store.VectorSize)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad embeddings provider", func(c *Config) { c.Embeddings.Provider = "magic" }},
		{"bad store provider", func(c *Config) { c.Store.Provider = "redis" }},
		{"weights not normalized", func(c *Config) { c.Ensemble.StatisticalWeight = 0.9 }},
		{"threshold out of range", func(c *Config) { c.Ensemble.AgreementThreshold = 1.5 }},
		{"dropout out of range", func(c *Config) { c.Classifier.Dropout = 1.0 }},
		{"cluster bounds inverted", func(c *Config) {
			c.Clustering.MinClusters = 20
			c.Clustering.MaxClusters = 5
		}},
		{"similarity top_k not positive", func(c *Config) { c.Similarity.TopK = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
