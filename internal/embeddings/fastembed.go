package embeddings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	fastembed "github.com/anush008/fastembed-go"
)

const (
	defaultLocalModel = "BAAI/bge-small-en-v1.5"

	// localMaxTokens is the default input sequence length.
	localMaxTokens = 512

	// localBatchSize is the document count per ONNX inference call.
	localBatchSize = 256
)

// localModel pairs a fastembed model identifier with its output width.
type localModel struct {
	id  fastembed.EmbeddingModel
	dim int
}

// localModels is the set of ONNX models the local provider can run,
// keyed by their Hugging Face names.
var localModels = map[string]localModel{
	"BAAI/bge-small-en-v1.5":                 {fastembed.BGESmallENV15, 384},
	"BAAI/bge-small-en":                      {fastembed.BGESmallEN, 384},
	"BAAI/bge-base-en-v1.5":                  {fastembed.BGEBaseENV15, 768},
	"BAAI/bge-base-en":                       {fastembed.BGEBaseEN, 768},
	"sentence-transformers/all-MiniLM-L6-v2": {fastembed.AllMiniLML6V2, 384},
}

// FastEmbedConfig configures the local ONNX embedding provider.
type FastEmbedConfig struct {
	// Model is the Hugging Face name of the embedding model. Empty
	// selects BAAI/bge-small-en-v1.5.
	Model string

	// CacheDir holds downloaded model files. Empty selects a faultd
	// subdirectory of the user cache directory.
	CacheDir string

	// MaxLength is the maximum input sequence length in tokens.
	MaxLength int
}

// FastEmbedProvider generates embeddings with a local ONNX model, so no
// network round trip happens per embed call after the one-time model
// download.
type FastEmbedProvider struct {
	mu    sync.RWMutex
	flag  *fastembed.FlagEmbedding
	model localModel
}

// NewFastEmbedProvider downloads the model into the cache directory if
// needed and loads it into memory.
func NewFastEmbedProvider(cfg FastEmbedConfig) (*FastEmbedProvider, error) {
	name := cfg.Model
	if name == "" {
		name = defaultLocalModel
	}
	model, ok := localModels[name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported model %q", ErrInvalidConfig, name)
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = defaultModelCacheDir()
	}
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = localMaxTokens
	}

	showProgress := false
	flag, err := fastembed.NewFlagEmbedding(&fastembed.InitOptions{
		Model:                model.id,
		CacheDir:             cacheDir,
		MaxLength:            maxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", name, err)
	}

	return &FastEmbedProvider{flag: flag, model: model}, nil
}

func defaultModelCacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(".", "faultd-models")
	}
	return filepath.Join(base, "faultd", "models")
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *FastEmbedProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	// PassageEmbed adds the "passage: " prefix BGE models expect on the
	// document side.
	vectors, err := p.flag.PassageEmbed(texts, localBatchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *FastEmbedProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	vector, err := p.flag.QueryEmbed(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return vector, nil
}

// Dimension returns the embedding dimension of the loaded model.
func (p *FastEmbedProvider) Dimension() int {
	return p.model.dim
}

// Close releases the ONNX session.
func (p *FastEmbedProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.flag == nil {
		return nil
	}
	err := p.flag.Destroy()
	p.flag = nil
	return err
}
