package net

import (
	"math/rand"
	"testing"

	"github.com/FlavioCFOliveira/tinynet/internal/activations"
	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/nodes"
	"github.com/FlavioCFOliveira/tinynet/internal/opt"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// fillRandom returns n samples of size random features.
func fillRandom(rng *rand.Rand, n, size int) []tensor.Vec {
	out := make([]tensor.Vec, n)
	for i := range out {
		out[i] = make(tensor.Vec, size)
		for j := range out[i] {
			out[i][j] = rng.Float64()
		}
	}
	return out
}

func benchNetwork(b *testing.B, exec *parallel.Executor) *Network {
	b.Helper()
	s := nodes.NewSequential()
	for _, dims := range [][2]int{{784, 256}, {256, 128}, {128, 10}} {
		l, err := layer.NewFullyConnected(dims[0], dims[1], activations.Tanh{})
		if err != nil {
			b.Fatal(err)
		}
		if err := s.Add(l); err != nil {
			b.Fatal(err)
		}
	}
	n := New(s, loss.MSE{})
	n.SetExecutor(exec)
	if err := n.InitWeights(); err != nil {
		b.Fatal(err)
	}
	return n
}

// BenchmarkNetworkForward benchmarks a forward pass over a 32-sample batch.
func BenchmarkNetworkForward(b *testing.B) {
	n := benchNetwork(b, parallel.Sequential())
	input := tensor.Wrap(fillRandom(rand.New(rand.NewSource(1)), 32, 784))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := n.PredictBatch(input); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkNetworkForwardParallel runs the same pass on every CPU.
func BenchmarkNetworkForwardParallel(b *testing.B) {
	n := benchNetwork(b, parallel.New(parallel.DefaultConfig()))
	input := tensor.Wrap(fillRandom(rand.New(rand.NewSource(1)), 32, 784))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := n.PredictBatch(input); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkFitEpoch benchmarks one epoch of 128 samples in batches of 32.
func BenchmarkFitEpoch(b *testing.B) {
	n := benchNetwork(b, parallel.New(parallel.DefaultConfig()))
	rng := rand.New(rand.NewSource(1))
	inputs := fillRandom(rng, 128, 784)
	targets := fillRandom(rng, 128, 10)
	o := opt.NewSGD(0.01)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := n.FitVec(o, inputs, targets, FitConfig{BatchSize: 32}); err != nil {
			b.Fatal(err)
		}
	}
}
