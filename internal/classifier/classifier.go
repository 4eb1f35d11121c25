// Package classifier provides the two learned cause classifiers: a
// small feed-forward network trained on labeled history and a
// k-nearest-neighbors classifier over the same feature space. Both
// share one vectorizer so feature indexes stay aligned, and both
// persist together so inference is reproducible after a restart.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/features"
)

var (
	// ErrDatasetTooSmall is returned when training is requested with
	// fewer labeled samples than the configured minimum.
	ErrDatasetTooSmall = errors.New("training dataset too small")

	// ErrModelNotTrained is returned when prediction is requested
	// before training or restore.
	ErrModelNotTrained = errors.New("model not trained")
)

// Config controls training and inference behavior.
type Config struct {
	HiddenSizes  []int
	Dropout      float64
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
	MinSamples   int
	KNNNeighbors int
}

func (c *Config) applyDefaults() {
	if len(c.HiddenSizes) == 0 {
		c.HiddenSizes = []int{64, 32}
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.01
	}
	if c.Epochs <= 0 {
		c.Epochs = 60
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 16
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 10
	}
	if c.KNNNeighbors <= 0 {
		c.KNNNeighbors = 5
	}
}

// Set holds the trained classifiers behind one lock. A Set is trained
// once and then queried concurrently.
type Set struct {
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics

	mu  sync.RWMutex
	vec *features.Vectorizer
	net *network
	knn *knnIndex

	trainX [][]float64
	trainY []int
}

// NewSet creates an untrained classifier set.
func NewSet(cfg Config, logger *zap.Logger) *Set {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Set{cfg: cfg, logger: logger, metrics: newMetrics()}
}

// Trained reports whether the set can serve predictions.
func (s *Set) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.net != nil
}

// Labels returns the label space of the trained model.
func (s *Set) Labels() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.vec == nil {
		return nil
	}
	return append([]string(nil), s.vec.Labels...)
}

// Train fits the vectorizer and both classifiers on labeled history.
// Records and causes are parallel slices.
func (s *Set) Train(ctx context.Context, records []errordata.ErrorRecord, causes []string) error {
	start := time.Now()

	if len(records) != len(causes) {
		return fmt.Errorf("records/causes length mismatch: %d vs %d", len(records), len(causes))
	}
	if len(records) < s.cfg.MinSamples {
		return fmt.Errorf("%w: got %d, need at least %d", ErrDatasetTooSmall, len(records), s.cfg.MinSamples)
	}

	samples := make([][]features.Feature, len(records))
	for i, rec := range records {
		samples[i] = features.Extract(rec)
	}

	vec := features.NewVectorizer()
	if err := vec.Fit(samples, causes); err != nil {
		return fmt.Errorf("fitting vectorizer: %w", err)
	}

	trainX := make([][]float64, len(samples))
	trainY := make([]int, len(samples))
	for i, feats := range samples {
		trainX[i] = vec.Transform(feats)
		trainY[i] = vec.LabelIndex[causes[i]]
	}

	sizes := append([]int{vec.Dimension()}, s.cfg.HiddenSizes...)
	sizes = append(sizes, vec.NumLabels())

	rng := rand.New(rand.NewSource(s.cfg.Seed))
	net := newNetwork(sizes, rng)
	loss := net.train(trainX, trainY, s.cfg.Epochs, s.cfg.BatchSize, s.cfg.LearningRate, s.cfg.Dropout, rng)

	s.mu.Lock()
	s.vec = vec
	s.net = net
	s.knn = newKNNIndex(trainX, trainY, s.cfg.KNNNeighbors)
	s.trainX = trainX
	s.trainY = trainY
	s.mu.Unlock()

	s.metrics.RecordTraining(ctx, len(records), time.Since(start))
	s.logger.Info("trained classifiers",
		zap.Int("samples", len(records)),
		zap.Int("features", vec.Dimension()),
		zap.Int("labels", vec.NumLabels()),
		zap.Float64("final_loss", loss),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// PredictStatistical returns the feed-forward network's cause
// distribution for a record. Dropout is inactive at inference, so the
// result is deterministic for a given trained model.
func (s *Set) PredictStatistical(ctx context.Context, rec errordata.ErrorRecord) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.net == nil {
		return nil, ErrModelNotTrained
	}

	x := s.vec.Transform(features.Extract(rec))
	probs := s.net.predict(x)

	s.metrics.RecordPrediction(ctx, "statistical")
	return s.toDistribution(probs), nil
}

// PredictKNN returns the one-hot majority-vote distribution of the k
// nearest training samples.
func (s *Set) PredictKNN(ctx context.Context, rec errordata.ErrorRecord) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.knn == nil {
		return nil, ErrModelNotTrained
	}

	x := s.vec.Transform(features.Extract(rec))
	probs := s.knn.predict(x, s.vec.NumLabels())

	s.metrics.RecordPrediction(ctx, "knn")
	return s.toDistribution(probs), nil
}

func (s *Set) toDistribution(probs []float64) map[string]float64 {
	dist := make(map[string]float64, len(probs))
	for i, p := range probs {
		dist[s.vec.LabelOf(i)] = p
	}
	return dist
}

// Snapshot captures everything needed to reproduce inference: the
// vectorizer's index maps, the network weights, and the memorized
// training set for KNN. Persisted as one blob so the pieces can never
// drift apart.
type Snapshot struct {
	Vectorizer *features.Vectorizer `json:"vectorizer"`
	Layers     []LayerSnapshot      `json:"layers"`
	TrainX     [][]float64          `json:"train_x"`
	TrainY     []int                `json:"train_y"`
}

// LayerSnapshot is one dense layer's parameters in row-major order.
type LayerSnapshot struct {
	In      int       `json:"in"`
	Out     int       `json:"out"`
	Weights []float64 `json:"weights"`
	Biases  []float64 `json:"biases"`
}

// Snapshot exports the trained state.
func (s *Set) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.net == nil {
		return nil, ErrModelNotTrained
	}

	snap := &Snapshot{
		Vectorizer: s.vec,
		TrainX:     s.trainX,
		TrainY:     s.trainY,
	}
	for l, w := range s.net.weights {
		rows, cols := w.Dims()
		snap.Layers = append(snap.Layers, LayerSnapshot{
			In:      cols,
			Out:     rows,
			Weights: append([]float64(nil), w.RawMatrix().Data...),
			Biases:  append([]float64(nil), s.net.biases[l].RawVector().Data...),
		})
	}
	return snap, nil
}

// Restore installs a previously exported snapshot.
func (s *Set) Restore(snap *Snapshot) error {
	if snap == nil || snap.Vectorizer == nil || len(snap.Layers) == 0 {
		return fmt.Errorf("%w: incomplete snapshot", ErrModelNotTrained)
	}

	net := &network{sizes: []int{snap.Layers[0].In}}
	for _, layer := range snap.Layers {
		if len(layer.Weights) != layer.In*layer.Out || len(layer.Biases) != layer.Out {
			return fmt.Errorf("layer %dx%d has inconsistent parameter counts", layer.Out, layer.In)
		}
		net.sizes = append(net.sizes, layer.Out)
		net.weights = append(net.weights, mat.NewDense(layer.Out, layer.In, append([]float64(nil), layer.Weights...)))
		net.biases = append(net.biases, mat.NewVecDense(layer.Out, append([]float64(nil), layer.Biases...)))
	}

	s.mu.Lock()
	s.vec = snap.Vectorizer
	s.net = net
	s.knn = newKNNIndex(snap.TrainX, snap.TrainY, s.cfg.KNNNeighbors)
	s.trainX = snap.TrainX
	s.trainY = snap.TrainY
	s.mu.Unlock()

	s.logger.Info("restored classifiers",
		zap.Int("features", snap.Vectorizer.Dimension()),
		zap.Int("labels", snap.Vectorizer.NumLabels()),
		zap.Int("knn_samples", len(snap.TrainX)))
	return nil
}
