// Package ensemble fuses the statistical classifier, the KNN
// classifier, and the similarity retriever into one ranked cause
// prediction with a cross-model confidence score.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/fyrsmithlabs/faultd/internal/cache"
	"github.com/fyrsmithlabs/faultd/internal/classifier"
	"github.com/fyrsmithlabs/faultd/internal/errordata"
	"github.com/fyrsmithlabs/faultd/internal/groups"
	"github.com/fyrsmithlabs/faultd/internal/similarity"
)

// ErrModelNotTrained is returned when prediction is requested before
// any underlying model is available.
var ErrModelNotTrained = errors.New("no trained model available")

const numModels = 3

// Config holds the fusion policy. The weights are a tunable policy, not
// learned parameters; they must sum to 1.
type Config struct {
	StatisticalWeight  float64
	KNNWeight          float64
	SimilarityWeight   float64
	AgreementThreshold float64
	ProbabilityFloor   float64
	TopK               int
}

func (c *Config) applyDefaults() {
	if c.StatisticalWeight == 0 && c.KNNWeight == 0 && c.SimilarityWeight == 0 {
		c.StatisticalWeight = 0.5
		c.KNNWeight = 0.2
		c.SimilarityWeight = 0.3
	}
	if c.AgreementThreshold == 0 {
		c.AgreementThreshold = 0.2
	}
	if c.ProbabilityFloor == 0 {
		c.ProbabilityFloor = 0.05
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
}

// CauseScore is one ranked cause in a prediction. Probability is the
// weighted fusion of the per-model scores; Confidence measures
// cross-model agreement independently of the fused probability.
type CauseScore struct {
	Cause         string             `json:"cause"`
	Probability   float64            `json:"probability"`
	Confidence    float64            `json:"confidence"`
	Contributions map[string]float64 `json:"contributions"`
}

// Prediction is the ranked output for one error.
type Prediction struct {
	ErrorID        string        `json:"error_id"`
	Causes         []CauseScore  `json:"causes"`
	ModelVersion   uint64        `json:"model_version"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Predictor fuses the three model outputs. The similarity retriever and
// classifier set are optional at construction but at least one model
// must be available at prediction time.
type Predictor struct {
	classifiers *classifier.Set
	retriever   *similarity.Retriever
	tracker     *groups.Tracker
	cache       *cache.Cache
	cfg         Config
	logger      *zap.Logger
	metrics     *Metrics
	version     atomic.Uint64
}

// NewPredictor creates an ensemble predictor. tracker may be nil when
// impact tracking is not wanted.
func NewPredictor(classifiers *classifier.Set, retriever *similarity.Retriever, tracker *groups.Tracker, c *cache.Cache, cfg Config, logger *zap.Logger) *Predictor {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Predictor{
		classifiers: classifiers,
		retriever:   retriever,
		tracker:     tracker,
		cache:       c,
		cfg:         cfg,
		logger:      logger,
		metrics:     newMetrics(),
	}
	p.version.Store(1)
	return p
}

// BumpModelVersion advances the version tag attached to predictions.
// Call after retraining or restoring models so stored predictions can
// be attributed to a model generation.
func (p *Predictor) BumpModelVersion() uint64 {
	return p.version.Add(1)
}

// ModelVersion returns the current version tag.
func (p *Predictor) ModelVersion() uint64 {
	return p.version.Load()
}

// Predict returns the ranked cause prediction for a record,
// cache-checked first by error ID. Models that are unavailable or fail
// transiently contribute a zero distribution; only the case of no model
// producing any signal is an error.
func (p *Predictor) Predict(ctx context.Context, rec errordata.ErrorRecord) (*Prediction, error) {
	start := time.Now()

	cacheKey := cache.Key("prediction", rec.ID)
	if p.cache != nil && rec.ID != "" {
		if v, ok := p.cache.Get(cacheKey); ok {
			if pred, ok := v.(*Prediction); ok {
				return pred, nil
			}
		}
	}

	statistical, knn, available := p.classifierDistributions(ctx, rec)

	var similarityDist map[string]float64
	if p.retriever != nil {
		analysis, err := p.retriever.Analyze(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("similarity analysis: %w", err)
		}
		if len(analysis.Distribution) > 0 {
			similarityDist = analysis.Distribution
			available = true
		}
	}

	if !available {
		return nil, ErrModelNotTrained
	}

	causes := p.fuse(statistical, knn, similarityDist)
	if len(causes) > p.cfg.TopK {
		causes = causes[:p.cfg.TopK]
	}

	pred := &Prediction{
		ErrorID:        rec.ID,
		Causes:         causes,
		ModelVersion:   p.version.Load(),
		ProcessingTime: time.Since(start),
	}

	if p.cache != nil && rec.ID != "" {
		p.cache.Set(cacheKey, pred)
	}

	p.recordImpact(rec)
	p.metrics.RecordPrediction(ctx, len(causes), time.Since(start))
	return pred, nil
}

// classifierDistributions queries both trained classifiers. An
// untrained set yields nil distributions without error.
func (p *Predictor) classifierDistributions(ctx context.Context, rec errordata.ErrorRecord) (statistical, knn map[string]float64, available bool) {
	if p.classifiers == nil || !p.classifiers.Trained() {
		return nil, nil, false
	}

	statistical, err := p.classifiers.PredictStatistical(ctx, rec)
	if err != nil {
		p.logger.Warn("statistical prediction failed", zap.Error(err))
		statistical = nil
	}
	knn, err = p.classifiers.PredictKNN(ctx, rec)
	if err != nil {
		p.logger.Warn("knn prediction failed", zap.Error(err))
		knn = nil
	}
	return statistical, knn, statistical != nil || knn != nil
}

// fuse combines the three distributions over the union label set with a
// linear weighted sum, scores confidence from cross-model agreement,
// sorts by fused probability, and drops entries at or below the floor.
func (p *Predictor) fuse(statistical, knn, similarityDist map[string]float64) []CauseScore {
	labels := map[string]bool{}
	for cause := range statistical {
		labels[cause] = true
	}
	for cause := range knn {
		labels[cause] = true
	}
	for cause := range similarityDist {
		labels[cause] = true
	}

	causes := make([]CauseScore, 0, len(labels))
	for cause := range labels {
		scores := [numModels]float64{statistical[cause], knn[cause], similarityDist[cause]}
		fused := p.cfg.StatisticalWeight*scores[0] +
			p.cfg.KNNWeight*scores[1] +
			p.cfg.SimilarityWeight*scores[2]

		causes = append(causes, CauseScore{
			Cause:       cause,
			Probability: fused,
			Confidence:  p.confidence(scores),
			Contributions: map[string]float64{
				"statistical": scores[0],
				"knn":         scores[1],
				"similarity":  scores[2],
			},
		})
	}

	sort.Slice(causes, func(i, j int) bool {
		if causes[i].Probability != causes[j].Probability {
			return causes[i].Probability > causes[j].Probability
		}
		return causes[i].Cause < causes[j].Cause
	})

	filtered := causes[:0]
	for _, c := range causes {
		if c.Probability > p.cfg.ProbabilityFloor {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// confidence rewards broad agreement and low disagreement: the fraction
// of models whose score exceeds the agreement threshold, damped by the
// population variance of the three scores. Strong disagreement drives
// it to zero even when one model is highly confident.
func (p *Predictor) confidence(scores [numModels]float64) float64 {
	agreement := 0
	for _, s := range scores {
		if s > p.cfg.AgreementThreshold {
			agreement++
		}
	}

	mean := stat.Mean(scores[:], nil)
	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= numModels

	return (float64(agreement) / numModels) * (1 - math.Min(1, variance*5))
}

// recordImpact bumps the affected-users estimate of the record's group.
// Failures are logged and swallowed; impact is a secondary metric.
func (p *Predictor) recordImpact(rec errordata.ErrorRecord) {
	if p.tracker == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("impact update panicked", zap.Any("cause", r))
		}
	}()
	p.tracker.RecordImpactFor(rec, 1)
}
