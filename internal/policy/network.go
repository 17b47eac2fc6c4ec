package policy

import (
	"math"
	"math/rand"
)

// Adam optimizer constants.
const (
	adamBeta1 = 0.9
	adamBeta2 = 0.999
	adamEps   = 1e-8
)

// Layer is one fully connected layer. Weights are stored row-major as
// [out][in]. Only W and B are serialized; optimizer moments are
// rebuilt from zero on load.
type Layer struct {
	W [][]float64 `json:"w"`
	B []float64   `json:"b"`

	gradW [][]float64
	gradB []float64
	mW    [][]float64
	vW    [][]float64
	mB    []float64
	vB    []float64
}

// Network is a small multilayer perceptron with ReLU hidden layers and
// a linear output. The policy head applies softmax on top of it; the
// value head uses the raw scalar.
type Network struct {
	Sizes  []int    `json:"sizes"`
	Layers []*Layer `json:"layers"`

	// cached forward pass, reused by Backward. The trainer is strictly
	// single threaded, so per-instance caching is safe.
	acts  [][]float64
	preZs [][]float64
	steps int
}

// NewNetwork builds a network with the given layer sizes, e.g.
// NewNetwork(rng, 17, 128, 64, 4). Weights use He initialization.
func NewNetwork(rng *rand.Rand, sizes ...int) *Network {
	n := &Network{Sizes: sizes}
	for l := 1; l < len(sizes); l++ {
		in, out := sizes[l-1], sizes[l]
		layer := &Layer{
			W: make([][]float64, out),
			B: make([]float64, out),
		}
		scale := math.Sqrt(2.0 / float64(in))
		for o := 0; o < out; o++ {
			layer.W[o] = make([]float64, in)
			for i := 0; i < in; i++ {
				layer.W[o][i] = rng.NormFloat64() * scale
			}
		}
		layer.initBuffers()
		n.Layers = append(n.Layers, layer)
	}
	return n
}

func (l *Layer) initBuffers() {
	out := len(l.W)
	in := 0
	if out > 0 {
		in = len(l.W[0])
	}
	l.gradW = zeroMatrix(out, in)
	l.mW = zeroMatrix(out, in)
	l.vW = zeroMatrix(out, in)
	l.gradB = make([]float64, out)
	l.mB = make([]float64, out)
	l.vB = make([]float64, out)
}

func zeroMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

// Forward runs the network on x and caches activations for Backward.
func (n *Network) Forward(x []float64) []float64 {
	n.acts = n.acts[:0]
	n.preZs = n.preZs[:0]

	a := x
	n.acts = append(n.acts, a)
	for l, layer := range n.Layers {
		z := make([]float64, len(layer.W))
		for o := range layer.W {
			sum := layer.B[o]
			for i, w := range layer.W[o] {
				sum += w * a[i]
			}
			z[o] = sum
		}
		n.preZs = append(n.preZs, z)

		if l < len(n.Layers)-1 { // hidden layers are ReLU
			a = make([]float64, len(z))
			for i, v := range z {
				if v > 0 {
					a[i] = v
				}
			}
		} else {
			a = z
		}
		n.acts = append(n.acts, a)
	}
	return a
}

// Backward accumulates parameter gradients for the most recent Forward
// call, given dLoss/dOutput on the linear output. Gradients sum across
// calls until Step is invoked.
func (n *Network) Backward(delta []float64) {
	d := make([]float64, len(delta))
	copy(d, delta)

	for l := len(n.Layers) - 1; l >= 0; l-- {
		layer := n.Layers[l]
		prevAct := n.acts[l]

		for o := range layer.W {
			layer.gradB[o] += d[o]
			for i := range layer.W[o] {
				layer.gradW[o][i] += d[o] * prevAct[i]
			}
		}

		if l == 0 {
			break
		}
		prev := make([]float64, len(prevAct))
		for i := range prev {
			sum := 0.0
			for o := range layer.W {
				sum += layer.W[o][i] * d[o]
			}
			// ReLU mask of the previous layer's pre-activation
			if n.preZs[l-1][i] > 0 {
				prev[i] = sum
			}
		}
		d = prev
	}
}

// Step applies one Adam update using the mean of the accumulated
// gradients over batchSize samples, then clears the accumulators.
func (n *Network) Step(lr float64, batchSize int) {
	n.steps++
	t := float64(n.steps)
	scale := 1.0 / float64(batchSize)
	corr1 := 1 - math.Pow(adamBeta1, t)
	corr2 := 1 - math.Pow(adamBeta2, t)

	for _, layer := range n.Layers {
		for o := range layer.W {
			for i := range layer.W[o] {
				g := layer.gradW[o][i] * scale
				layer.mW[o][i] = adamBeta1*layer.mW[o][i] + (1-adamBeta1)*g
				layer.vW[o][i] = adamBeta2*layer.vW[o][i] + (1-adamBeta2)*g*g
				mHat := layer.mW[o][i] / corr1
				vHat := layer.vW[o][i] / corr2
				layer.W[o][i] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
				layer.gradW[o][i] = 0
			}
			g := layer.gradB[o] * scale
			layer.mB[o] = adamBeta1*layer.mB[o] + (1-adamBeta1)*g
			layer.vB[o] = adamBeta2*layer.vB[o] + (1-adamBeta2)*g*g
			mHat := layer.mB[o] / corr1
			vHat := layer.vB[o] / corr2
			layer.B[o] -= lr * mHat / (math.Sqrt(vHat) + adamEps)
			layer.gradB[o] = 0
		}
	}
}
