package classifier

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// knnIndex memorizes the full labeled training set and classifies by
// majority vote among the k nearest neighbors in euclidean distance.
type knnIndex struct {
	samples [][]float64
	labels  []int
	k       int
}

func newKNNIndex(samples [][]float64, labels []int, k int) *knnIndex {
	if k <= 0 {
		k = 5
	}
	if k > len(samples) {
		k = len(samples)
	}
	return &knnIndex{samples: samples, labels: labels, k: k}
}

// predict returns a one-hot distribution over numLabels for the
// majority label of the k nearest neighbors. Ties break toward the
// lowest label index so results are deterministic.
func (idx *knnIndex) predict(x []float64, numLabels int) []float64 {
	type neighbor struct {
		dist  float64
		label int
	}

	neighbors := make([]neighbor, len(idx.samples))
	for i, s := range idx.samples {
		neighbors[i] = neighbor{dist: floats.Distance(s, x, 2), label: idx.labels[i]}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].dist != neighbors[j].dist {
			return neighbors[i].dist < neighbors[j].dist
		}
		return neighbors[i].label < neighbors[j].label
	})

	votes := make([]int, numLabels)
	for _, nb := range neighbors[:idx.k] {
		if nb.label >= 0 && nb.label < numLabels {
			votes[nb.label]++
		}
	}

	best := 0
	for label, count := range votes {
		if count > votes[best] {
			best = label
		}
	}

	dist := make([]float64, numLabels)
	dist[best] = 1
	return dist
}
