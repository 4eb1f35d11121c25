package classifier

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// network is a small feed-forward classifier: dense layers with ReLU
// activations, inverted dropout between hidden layers during training,
// and a softmax output. Trained with seeded minibatch SGD on
// cross-entropy loss.
type network struct {
	sizes   []int
	weights []*mat.Dense
	biases  []*mat.VecDense
}

// newNetwork builds a network with He-initialized weights.
func newNetwork(sizes []int, rng *rand.Rand) *network {
	n := &network{sizes: sizes}
	for l := 0; l < len(sizes)-1; l++ {
		in, out := sizes[l], sizes[l+1]
		scale := math.Sqrt(2 / float64(in))
		w := make([]float64, out*in)
		for i := range w {
			w[i] = rng.NormFloat64() * scale
		}
		n.weights = append(n.weights, mat.NewDense(out, in, w))
		n.biases = append(n.biases, mat.NewVecDense(out, nil))
	}
	return n
}

// forward runs one sample through the network. When rng is non-nil,
// inverted dropout is applied to hidden activations; inference passes
// rng == nil and is fully deterministic.
//
// Returns the activations per layer (input included) and the dropout
// masks used, for backpropagation.
func (n *network) forward(x []float64, dropout float64, rng *rand.Rand) ([]*mat.VecDense, [][]float64) {
	activations := []*mat.VecDense{mat.NewVecDense(len(x), append([]float64(nil), x...))}
	masks := make([][]float64, len(n.weights))

	for l, w := range n.weights {
		rows, _ := w.Dims()
		z := mat.NewVecDense(rows, nil)
		z.MulVec(w, activations[l])
		z.AddVec(z, n.biases[l])

		last := l == len(n.weights)-1
		if last {
			softmaxInPlace(z.RawVector().Data)
			activations = append(activations, z)
			continue
		}

		reluInPlace(z.RawVector().Data)
		if rng != nil && dropout > 0 {
			keep := 1 - dropout
			mask := make([]float64, rows)
			data := z.RawVector().Data
			for i := range mask {
				if rng.Float64() < keep {
					mask[i] = 1 / keep
				}
				data[i] *= mask[i]
			}
			masks[l] = mask
		}
		activations = append(activations, z)
	}

	return activations, masks
}

// train runs seeded minibatch SGD over one-hot targets.
func (n *network) train(samples [][]float64, targets []int, epochs, batchSize int, learningRate, dropout float64, rng *rand.Rand) float64 {
	if batchSize <= 0 || batchSize > len(samples) {
		batchSize = len(samples)
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}

	var lastLoss float64
	for epoch := 0; epoch < epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})

		var epochLoss float64
		for start := 0; start < len(order); start += batchSize {
			end := start + batchSize
			if end > len(order) {
				end = len(order)
			}
			batch := order[start:end]
			epochLoss += n.sgdStep(samples, targets, batch, learningRate, dropout, rng)
		}
		lastLoss = epochLoss / float64(len(samples))
	}
	return lastLoss
}

// sgdStep accumulates gradients over one minibatch and applies a single
// update. Returns the summed cross-entropy loss over the batch.
func (n *network) sgdStep(samples [][]float64, targets []int, batch []int, learningRate, dropout float64, rng *rand.Rand) float64 {
	gradW := make([]*mat.Dense, len(n.weights))
	gradB := make([]*mat.VecDense, len(n.biases))
	for l, w := range n.weights {
		rows, cols := w.Dims()
		gradW[l] = mat.NewDense(rows, cols, nil)
		gradB[l] = mat.NewVecDense(rows, nil)
	}

	var loss float64
	for _, i := range batch {
		activations, masks := n.forward(samples[i], dropout, rng)

		output := activations[len(activations)-1].RawVector().Data
		loss += -math.Log(math.Max(output[targets[i]], 1e-12))

		// Softmax + cross-entropy collapses to p - y at the output.
		delta := mat.NewVecDense(len(output), append([]float64(nil), output...))
		delta.SetVec(targets[i], delta.AtVec(targets[i])-1)

		for l := len(n.weights) - 1; l >= 0; l-- {
			var outer mat.Dense
			outer.Outer(1, delta, activations[l])
			gradW[l].Add(gradW[l], &outer)
			gradB[l].AddVec(gradB[l], delta)

			if l == 0 {
				break
			}

			prev := mat.NewVecDense(activations[l].Len(), nil)
			prev.MulVec(n.weights[l].T(), delta)

			// Backprop through ReLU and the dropout mask.
			data := prev.RawVector().Data
			act := activations[l].RawVector().Data
			for j := range data {
				if act[j] <= 0 {
					data[j] = 0
				} else if masks[l-1] != nil {
					data[j] *= masks[l-1][j]
				}
			}
			delta = prev
		}
	}

	step := learningRate / float64(len(batch))
	for l := range n.weights {
		gradW[l].Scale(step, gradW[l])
		n.weights[l].Sub(n.weights[l], gradW[l])
		gradB[l].ScaleVec(step, gradB[l])
		n.biases[l].SubVec(n.biases[l], gradB[l])
	}
	return loss
}

// predict returns the softmax distribution for one sample.
func (n *network) predict(x []float64) []float64 {
	activations, _ := n.forward(x, 0, nil)
	out := activations[len(activations)-1].RawVector().Data
	return append([]float64(nil), out...)
}

func reluInPlace(data []float64) {
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
}

func softmaxInPlace(data []float64) {
	max := data[0]
	for _, v := range data[1:] {
		if v > max {
			max = v
		}
	}
	var sum float64
	for i, v := range data {
		data[i] = math.Exp(v - max)
		sum += data[i]
	}
	for i := range data {
		data[i] /= sum
	}
}
