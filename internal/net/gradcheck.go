package net

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// GradCheckMode selects which parameter elements GradientCheck verifies.
type GradCheckMode int

const (
	// GradCheckAll verifies every element of every parameter.
	GradCheckAll GradCheckMode = iota
	// GradCheckRandom verifies a few randomly chosen elements per parameter.
	GradCheckRandom
)

const gradCheckSamples = 10

// GradientCheck compares the gradient accumulated by Backward with a central
// finite difference of the summed loss, for every trainable parameter. It
// reports false as soon as one element differs by more than eps. Parameter
// gradients are cleared on return.
func (n *Network) GradientCheck(inputs, targets []tensor.Tensor, eps float64, mode GradCheckMode) (bool, error) {
	const op = "net.gradient_check"
	if len(inputs) == 0 || len(inputs) != len(targets) {
		return false, nnerr.Errorf(nnerr.InputContract, op,
			"%w: %d inputs, %d targets", nnerr.ErrSizeMismatch, len(inputs), len(targets))
	}
	if err := n.ensureSetup(); err != nil {
		return false, err
	}
	defer n.net.ClearGrads()

	n.net.ClearGrads()
	out, err := n.net.Forward(inputs)
	if err != nil {
		return false, err
	}
	grads, err := loss.Gradients(n.loss, out, targets, nil)
	if err != nil {
		return false, err
	}
	if _, err := n.net.Backward(grads); err != nil {
		return false, err
	}

	var evalErr error
	lossAt := func() float64 {
		out, err := n.net.Forward(inputs)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		l, err := loss.Total(n.loss, out, targets)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return l
	}

	settings := &fd.Settings{
		Formula: fd.Central,
		Step:    math.Sqrt(math.Nextafter(1, 2) - 1),
	}
	rng := rand.New(rand.NewSource(int64(len(inputs))))

	for _, p := range n.net.Params() {
		analytic := p.Grad.Clone()
		for _, i := range checkIndices(len(p.Value), mode, rng) {
			orig := p.Value[i]
			numeric := fd.Derivative(func(x float64) float64 {
				p.Value[i] = x
				defer func() { p.Value[i] = orig }()
				return lossAt()
			}, orig, settings)
			if evalErr != nil {
				return false, evalErr
			}
			if math.Abs(numeric-analytic[i]) > eps {
				return false, nil
			}
		}
	}
	return true, nil
}

func checkIndices(size int, mode GradCheckMode, rng *rand.Rand) []int {
	if mode == GradCheckAll || size <= gradCheckSamples {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	idx := make([]int, gradCheckSamples)
	for i := range idx {
		idx[i] = rng.Intn(size)
	}
	return idx
}
