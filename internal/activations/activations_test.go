// Package activations provides unit tests for activation functions.
package activations

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestReLU tests ReLU activation.
func TestReLU(t *testing.T) {
	relu := ReLU{}

	tests := []struct {
		input    float64
		expected float64
		deriv    float64
	}{
		{-1.0, 0.0, 0.0}, // Negative -> 0
		{0.0, 0.0, 0.0},  // x must be > 0 for slope 1
		{1.0, 1.0, 1.0},
		{2.5, 2.5, 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.expected, relu.Activate(tt.input), 1e-12, "ReLU(%v)", tt.input)
		assert.InDelta(t, tt.deriv, relu.Derivative(tt.input), 1e-12, "ReLU'(%v)", tt.input)
	}
}

// TestSigmoid tests Sigmoid activation and derivative.
func TestSigmoid(t *testing.T) {
	s := Sigmoid{}
	assert.InDelta(t, 0.5, s.Activate(0), 1e-12)
	assert.InDelta(t, 0.25, s.Derivative(0), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2)), s.Activate(2), 1e-12)
}

// TestTanh tests Tanh activation and derivative.
func TestTanh(t *testing.T) {
	th := Tanh{}
	assert.InDelta(t, 0.0, th.Activate(0), 1e-12)
	assert.InDelta(t, 1.0, th.Derivative(0), 1e-12)
	assert.InDelta(t, math.Tanh(0.7), th.Activate(0.7), 1e-12)
}

// TestLeakyReLU tests the negative slope.
func TestLeakyReLU(t *testing.T) {
	l := NewLeakyReLU(0.1)
	assert.InDelta(t, -0.2, l.Activate(-2), 1e-12)
	assert.InDelta(t, 0.1, l.Derivative(-2), 1e-12)
	assert.InDelta(t, 3.0, l.Activate(3), 1e-12)
}

// TestDerivativesMatchFiniteDifference compares analytic derivatives with central differences.
func TestDerivativesMatchFiniteDifference(t *testing.T) {
	const h = 1e-6
	for _, act := range []Activation{Sigmoid{}, Tanh{}, Linear{}} {
		for _, x := range []float64{-1.3, -0.2, 0.4, 1.7} {
			numeric := (act.Activate(x+h) - act.Activate(x-h)) / (2 * h)
			assert.InDelta(t, numeric, act.Derivative(x), 1e-6, "%T at %v", act, x)
		}
	}
}

// TestSoftmax tests the vector activation and its Jacobian product.
func TestSoftmax(t *testing.T) {
	s := Softmax{}
	x := []float64{1, 2, 3}
	y := make([]float64, 3)
	s.ActivateVec(y, x)

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
	assert.Greater(t, y[2], y[1])
	assert.Greater(t, y[1], y[0])

	// Gradient of sum(y) is zero because sum(y) is constant.
	dx := make([]float64, 3)
	s.BackwardVec(dx, y, []float64{1, 1, 1})
	for _, v := range dx {
		assert.InDelta(t, 0.0, v, 1e-12)
	}

	assert.Panics(t, func() { s.Activate(1) })
}

func TestRanges(t *testing.T) {
	lo, hi := Tanh{}.Range()
	assert.Equal(t, -0.8, lo)
	assert.Equal(t, 0.8, hi)

	lo, hi = Sigmoid{}.Range()
	assert.Equal(t, 0.1, lo)
	assert.Equal(t, 0.9, hi)

	lo, hi = Softmax{}.Range()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"relu", "leaky_relu", "sigmoid", "tanh", "linear", "identity", "softmax"} {
		act, ok := ByName(name)
		assert.True(t, ok, name)
		assert.NotNil(t, act, name)
	}
	_, ok := ByName("swish")
	assert.False(t, ok)
}
