package features

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNotFitted is returned when a vectorizer is used before Fit.
var ErrNotFitted = errors.New("vectorizer not fitted")

// Vectorizer projects sparse feature bags into fixed-size dense vectors
// using a bidirectional feature index built once at training time.
// Features unseen during training contribute no signal at inference
// time; they are silently dropped.
//
// The zero value is not usable; construct with NewVectorizer and call
// Fit, or restore a persisted instance.
type Vectorizer struct {
	FeatureIndex map[string]int `json:"feature_index"`
	FeatureNames []string       `json:"feature_names"`
	LabelIndex   map[string]int `json:"label_index"`
	Labels       []string       `json:"labels"`
}

// NewVectorizer creates an empty, unfitted vectorizer.
func NewVectorizer() *Vectorizer {
	return &Vectorizer{
		FeatureIndex: map[string]int{},
		LabelIndex:   map[string]int{},
	}
}

// Fit builds the feature and label indexes from a labeled training set.
// Indexes are assigned in sorted name order so fitting is deterministic
// regardless of map iteration order.
func (v *Vectorizer) Fit(samples [][]Feature, labels []string) error {
	if len(samples) != len(labels) {
		return fmt.Errorf("samples/labels length mismatch: %d vs %d", len(samples), len(labels))
	}

	nameSet := map[string]bool{}
	for _, feats := range samples {
		for _, f := range feats {
			nameSet[f.Name()] = true
		}
	}
	labelSet := map[string]bool{}
	for _, label := range labels {
		labelSet[label] = true
	}

	v.FeatureNames = sortedKeys(nameSet)
	v.FeatureIndex = make(map[string]int, len(v.FeatureNames))
	for i, name := range v.FeatureNames {
		v.FeatureIndex[name] = i
	}

	v.Labels = sortedKeys(labelSet)
	v.LabelIndex = make(map[string]int, len(v.Labels))
	for i, label := range v.Labels {
		v.LabelIndex[label] = i
	}

	return nil
}

// Fitted reports whether the vectorizer has a usable index.
func (v *Vectorizer) Fitted() bool {
	return len(v.FeatureIndex) > 0 && len(v.LabelIndex) > 0
}

// Transform projects a feature bag into the dense training-time vector
// space. Unknown features are dropped.
func (v *Vectorizer) Transform(feats []Feature) []float64 {
	vec := make([]float64, len(v.FeatureIndex))
	for _, f := range feats {
		if idx, ok := v.FeatureIndex[f.Name()]; ok {
			vec[idx] += f.Value
		}
	}
	return vec
}

// Dimension is the size of the dense feature space.
func (v *Vectorizer) Dimension() int { return len(v.FeatureIndex) }

// NumLabels is the size of the label space.
func (v *Vectorizer) NumLabels() int { return len(v.Labels) }

// LabelOf returns the label for an index.
func (v *Vectorizer) LabelOf(i int) string {
	if i < 0 || i >= len(v.Labels) {
		return ""
	}
	return v.Labels[i]
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
