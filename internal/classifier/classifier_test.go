package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/faultd/internal/errordata"
)

func testConfig() Config {
	return Config{
		HiddenSizes:  []int{16},
		Dropout:      0,
		LearningRate: 0.1,
		Epochs:       400,
		BatchSize:    8,
		Seed:         42,
		MinSamples:   4,
		KNNNeighbors: 3,
	}
}

// labeledDataset builds a linearly separable two-cause training set:
// network errors and validation errors with disjoint vocabularies.
func labeledDataset(perCause int) ([]errordata.ErrorRecord, []string) {
	var records []errordata.ErrorRecord
	var causes []string
	for i := 0; i < perCause; i++ {
		records = append(records, errordata.ErrorRecord{
			ID:      fmt.Sprintf("net-%d", i),
			Type:    "NetworkError",
			Message: fmt.Sprintf("network request timeout upstream gateway attempt %d", i),
		})
		causes = append(causes, "NetworkError")

		records = append(records, errordata.ErrorRecord{
			ID:      fmt.Sprintf("val-%d", i),
			Type:    "ValidationError",
			Message: fmt.Sprintf("invalid email address field rejected attempt %d", i),
		})
		causes = append(causes, "ValidationError")
	}
	return records, causes
}

func trainedSet(t *testing.T) *Set {
	t.Helper()
	s := NewSet(testConfig(), nil)
	records, causes := labeledDataset(10)
	require.NoError(t, s.Train(context.Background(), records, causes))
	return s
}

func TestSet_TrainRejectsSmallDataset(t *testing.T) {
	s := NewSet(testConfig(), nil)
	records, causes := labeledDataset(1)
	err := s.Train(context.Background(), records, causes)
	assert.ErrorIs(t, err, ErrDatasetTooSmall)
	assert.False(t, s.Trained())
}

func TestSet_PredictBeforeTraining(t *testing.T) {
	s := NewSet(testConfig(), nil)
	rec := errordata.ErrorRecord{Type: "NetworkError", Message: "network timeout"}

	_, err := s.PredictStatistical(context.Background(), rec)
	assert.ErrorIs(t, err, ErrModelNotTrained)
	_, err = s.PredictKNN(context.Background(), rec)
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestSet_StatisticalLearnsSeparableCauses(t *testing.T) {
	s := trainedSet(t)
	ctx := context.Background()

	netDist, err := s.PredictStatistical(ctx, errordata.ErrorRecord{
		Type: "NetworkError", Message: "network gateway timeout",
	})
	require.NoError(t, err)
	assertDistribution(t, netDist)
	assert.Greater(t, netDist["NetworkError"], netDist["ValidationError"])

	valDist, err := s.PredictStatistical(ctx, errordata.ErrorRecord{
		Type: "ValidationError", Message: "invalid email rejected",
	})
	require.NoError(t, err)
	assert.Greater(t, valDist["ValidationError"], valDist["NetworkError"])
}

func TestSet_StatisticalIsDeterministicAtInference(t *testing.T) {
	s := trainedSet(t)
	ctx := context.Background()
	rec := errordata.ErrorRecord{Type: "NetworkError", Message: "network timeout"}

	first, err := s.PredictStatistical(ctx, rec)
	require.NoError(t, err)
	second, err := s.PredictStatistical(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSet_KNNReturnsOneHotMajority(t *testing.T) {
	s := trainedSet(t)

	dist, err := s.PredictKNN(context.Background(), errordata.ErrorRecord{
		Type: "NetworkError", Message: "network request timeout upstream",
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, dist["NetworkError"])
	assert.Equal(t, 0.0, dist["ValidationError"])
}

func TestSet_UnseenFeaturesAreDropped(t *testing.T) {
	s := trainedSet(t)

	// A record sharing no vocabulary with the training set still gets a
	// valid distribution rather than an error.
	dist, err := s.PredictStatistical(context.Background(), errordata.ErrorRecord{
		Type: "QuotaError", Message: "completely novel words here",
	})
	require.NoError(t, err)
	assertDistribution(t, dist)
}

func TestSet_SnapshotRoundTrip(t *testing.T) {
	s := trainedSet(t)
	ctx := context.Background()
	rec := errordata.ErrorRecord{Type: "ValidationError", Message: "invalid email field"}

	want, err := s.PredictStatistical(ctx, rec)
	require.NoError(t, err)
	wantKNN, err := s.PredictKNN(ctx, rec)
	require.NoError(t, err)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	blob, err := json.Marshal(snap)
	require.NoError(t, err)

	var restored Snapshot
	require.NoError(t, json.Unmarshal(blob, &restored))

	fresh := NewSet(testConfig(), nil)
	require.NoError(t, fresh.Restore(&restored))
	require.True(t, fresh.Trained())

	got, err := fresh.PredictStatistical(ctx, rec)
	require.NoError(t, err)
	gotKNN, err := fresh.PredictKNN(ctx, rec)
	require.NoError(t, err)

	for label, p := range want {
		assert.InDelta(t, p, got[label], 1e-9, "label %s", label)
	}
	assert.Equal(t, wantKNN, gotKNN)
}

func TestSet_SnapshotBeforeTraining(t *testing.T) {
	s := NewSet(testConfig(), nil)
	_, err := s.Snapshot()
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestSet_RestoreRejectsIncompleteSnapshot(t *testing.T) {
	s := NewSet(testConfig(), nil)
	assert.Error(t, s.Restore(nil))
	assert.Error(t, s.Restore(&Snapshot{}))
}

func assertDistribution(t *testing.T, dist map[string]float64) {
	t.Helper()
	var total float64
	for label, p := range dist {
		assert.GreaterOrEqual(t, p, 0.0, "label %s", label)
		assert.LessOrEqual(t, p, 1.0, "label %s", label)
		total += p
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}
