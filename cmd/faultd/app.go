package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/faultd/internal/cache"
	"github.com/fyrsmithlabs/faultd/internal/classifier"
	"github.com/fyrsmithlabs/faultd/internal/cluster"
	"github.com/fyrsmithlabs/faultd/internal/config"
	"github.com/fyrsmithlabs/faultd/internal/embeddings"
	"github.com/fyrsmithlabs/faultd/internal/ensemble"
	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/fingerprint"
	"github.com/fyrsmithlabs/faultd/internal/groups"
	"github.com/fyrsmithlabs/faultd/internal/logging"
	"github.com/fyrsmithlabs/faultd/internal/persistence"
	"github.com/fyrsmithlabs/faultd/internal/similarity"
	"github.com/fyrsmithlabs/faultd/internal/simstore"
)

// Blob names in the persistence store.
const (
	blobClassifiers = "classifiers"
	blobClusters    = "clusters"
	blobGroups      = "groups"
)

// app bundles the wired analysis pipeline for one CLI invocation.
// Components are constructed once from config and shut down in close.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	cache       *cache.Cache
	provider    embeddings.Provider
	store       simstore.Store
	retriever   *similarity.Retriever
	classifiers *classifier.Set
	clusters    *cluster.Engine
	tracker     *groups.Tracker
	blobs       *persistence.Store
	predictor   *ensemble.Predictor
}

// newApp loads config, builds every component, and restores persisted
// model state where present. withEmbeddings controls whether the
// embedding provider (and everything depending on it) is constructed;
// fingerprint-only commands skip the model download entirely.
func newApp(ctx context.Context, withEmbeddings bool) (*app, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.cache = cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries, logger.Named("cache"))

	a.blobs, err = persistence.NewStore(cfg.Persistence.Dir, logger.Named("persistence"))
	if err != nil {
		a.close()
		return nil, err
	}

	a.tracker = groups.NewTracker(fingerprint.NewEngine(logger.Named("fingerprint")), logger.Named("groups"))
	if a.blobs.Exists(blobGroups) {
		var stored []errordata.ErrorGroup
		if err := a.blobs.LoadJSON(blobGroups, &stored); err != nil {
			a.close()
			return nil, fmt.Errorf("loading groups: %w", err)
		}
		a.tracker.Load(stored)
	}

	a.classifiers = classifier.NewSet(classifier.Config{
		HiddenSizes:  cfg.Classifier.HiddenSizes,
		Dropout:      cfg.Classifier.Dropout,
		LearningRate: cfg.Classifier.LearningRate,
		Epochs:       cfg.Classifier.Epochs,
		BatchSize:    cfg.Classifier.BatchSize,
		Seed:         cfg.Classifier.Seed,
		MinSamples:   cfg.Classifier.MinSamples,
		KNNNeighbors: cfg.Classifier.KNNNeighbors,
	}, logger.Named("classifier"))
	if a.blobs.Exists(blobClassifiers) {
		var snap classifier.Snapshot
		if err := a.blobs.LoadJSON(blobClassifiers, &snap); err != nil {
			a.close()
			return nil, fmt.Errorf("loading classifiers: %w", err)
		}
		if err := a.classifiers.Restore(&snap); err != nil {
			a.close()
			return nil, fmt.Errorf("restoring classifiers: %w", err)
		}
	}

	if withEmbeddings {
		if err := a.buildEmbeddingPipeline(ctx); err != nil {
			a.close()
			return nil, err
		}
	}

	a.predictor = ensemble.NewPredictor(a.classifiers, a.retriever, a.tracker, a.cache, ensemble.Config{
		StatisticalWeight:  cfg.Ensemble.StatisticalWeight,
		KNNWeight:          cfg.Ensemble.KNNWeight,
		SimilarityWeight:   cfg.Ensemble.SimilarityWeight,
		AgreementThreshold: cfg.Ensemble.AgreementThreshold,
		ProbabilityFloor:   cfg.Ensemble.ProbabilityFloor,
		TopK:               cfg.Ensemble.TopK,
	}, logger.Named("ensemble"))

	return a, nil
}

func (a *app) buildEmbeddingPipeline(ctx context.Context) error {
	inner, err := embeddings.NewProvider(embeddings.ProviderConfig{
		Provider: a.cfg.Embeddings.Provider,
		Model:    a.cfg.Embeddings.Model,
		BaseURL:  a.cfg.Embeddings.BaseURL,
		CacheDir: a.cfg.Embeddings.CacheDir,
	})
	if err != nil {
		return fmt.Errorf("creating embedding provider: %w", err)
	}
	a.provider = embeddings.NewCachedProvider(inner, a.cache, a.cfg.Embeddings.Model, a.logger.Named("embeddings"))

	a.store, err = simstore.NewStore(ctx, simstore.Config{
		Provider:   a.cfg.Store.Provider,
		Path:       a.cfg.Store.Path,
		Collection: a.cfg.Store.Collection,
		VectorSize: a.cfg.Store.VectorSize,
		Qdrant: simstore.QdrantConfig{
			Host:   a.cfg.Store.Qdrant.Host,
			Port:   a.cfg.Store.Qdrant.Port,
			APIKey: a.cfg.Store.Qdrant.APIKey,
			UseTLS: a.cfg.Store.Qdrant.UseTLS,
		},
	})
	if err != nil {
		return fmt.Errorf("creating embedding store: %w", err)
	}

	a.retriever = similarity.NewRetriever(a.provider, a.store, a.cache, a.cfg.Similarity.TopK, a.logger.Named("similarity"))

	a.clusters = cluster.NewEngine(a.provider, cluster.Config{
		Seed:          a.cfg.Clustering.Seed,
		MaxIterations: a.cfg.Clustering.MaxIterations,
		MinClusters:   a.cfg.Clustering.MinClusters,
		MaxClusters:   a.cfg.Clustering.MaxClusters,
		MinSamples:    a.cfg.Clustering.MinSamples,
		MaxBatch:      a.cfg.Clustering.MaxBatch,
	}, a.logger.Named("cluster"))
	if a.blobs.Exists(blobClusters) {
		var stored []cluster.Cluster
		if err := a.blobs.LoadJSON(blobClusters, &stored); err != nil {
			return fmt.Errorf("loading clusters: %w", err)
		}
		a.clusters.SetClusters(stored)
	}
	return nil
}

// saveGroups persists the group tracker state.
func (a *app) saveGroups() error {
	return a.blobs.SaveJSON(blobGroups, a.tracker.Snapshot())
}

func (a *app) close() {
	var errs []error
	if a.provider != nil {
		errs = append(errs, a.provider.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if a.cache != nil {
		a.cache.Stop()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("shutdown errors", zap.Error(err))
	}
	_ = logging.Sync(a.logger)
}
