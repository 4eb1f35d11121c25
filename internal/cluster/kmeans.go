package cluster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// kMeans partitions data into k clusters with Lloyd's algorithm and
// k-means++ seeding. The rng makes runs reproducible: a fixed seed and
// fixed input batch always yield the same partition.
//
// Returns the final centroids and the per-point cluster assignment.
func kMeans(data [][]float64, k, maxIterations int, rng *rand.Rand) ([][]float64, []int) {
	n := len(data)
	if k > n {
		k = n
	}

	centroids := seedCentroids(data, k, rng)
	assignments := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, point := range data {
			best := nearestCentroid(point, centroids)
			if best != assignments[i] {
				assignments[i] = best
				changed = true
			}
		}

		if !changed && iter > 0 {
			break
		}

		recomputeCentroids(data, assignments, centroids, rng)
	}

	return centroids, assignments
}

// seedCentroids implements k-means++ initialization: the first centroid
// is drawn uniformly, each subsequent one proportionally to squared
// distance from the nearest already-chosen centroid.
func seedCentroids(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	first := data[rng.Intn(len(data))]
	centroids = append(centroids, cloneVec(first))

	distances := make([]float64, len(data))
	for len(centroids) < k {
		var total float64
		for i, point := range data {
			d := squaredDistanceToNearest(point, centroids)
			distances[i] = d
			total += d
		}

		if total == 0 {
			// All remaining points coincide with a centroid; fall back
			// to uniform choice.
			centroids = append(centroids, cloneVec(data[rng.Intn(len(data))]))
			continue
		}

		target := rng.Float64() * total
		var cumulative float64
		chosen := len(data) - 1
		for i, d := range distances {
			cumulative += d
			if cumulative >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, cloneVec(data[chosen]))
	}

	return centroids
}

func squaredDistanceToNearest(point []float64, centroids [][]float64) float64 {
	best := math.MaxFloat64
	for _, c := range centroids {
		if d := squaredDistance(point, c); d < best {
			best = d
		}
	}
	return best
}

func nearestCentroid(point []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := squaredDistance(point, c); d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func recomputeCentroids(data [][]float64, assignments []int, centroids [][]float64, rng *rand.Rand) {
	dim := len(data[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for i, point := range data {
		c := assignments[i]
		floats.Add(sums[c], point)
		counts[c]++
	}

	for i := range centroids {
		if counts[i] == 0 {
			// Re-seed empty clusters from a random point to keep k
			// stable across iterations.
			centroids[i] = cloneVec(data[rng.Intn(len(data))])
			continue
		}
		floats.Scale(1/float64(counts[i]), sums[i])
		centroids[i] = sums[i]
	}
}

func squaredDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// meanVector is the arithmetic mean of a set of vectors.
func meanVector(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	mean := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		floats.Add(mean, v)
	}
	floats.Scale(1/float64(len(vectors)), mean)
	return mean
}

// cosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	dot := floats.Dot(a, b)
	magA := math.Sqrt(floats.Dot(a, a))
	magB := math.Sqrt(floats.Dot(b, b))
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
