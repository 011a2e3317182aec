package loss

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// TestMSE tests MSE loss computation.
func TestMSE(t *testing.T) {
	tests := []struct {
		name     string
		y, t     tensor.Vec
		expected float64
	}{
		{"perfect prediction", tensor.Vec{1, 2, 3}, tensor.Vec{1, 2, 3}, 0},
		{"simple error", tensor.Vec{1, 2}, tensor.Vec{0, 0}, 2.5},
		{"negative values", tensor.Vec{-1}, tensor.Vec{1}, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.expected, MSE{}.Value(tt.y, tt.t), 1e-12, tt.name)
	}
	assert.Equal(t, tensor.Vec{1, 2}, MSE{}.Gradient(tensor.Vec{1, 2}, tensor.Vec{0, 0}))
}

func TestLengthMismatchPanics(t *testing.T) {
	for _, l := range []Loss{MSE{}, Absolute{}, NewHuber(1), CrossEntropy{}, CrossEntropyMultiClass{}} {
		assert.Panics(t, func() { l.Value(tensor.Vec{1}, tensor.Vec{1, 2}) })
		assert.Panics(t, func() { l.Gradient(tensor.Vec{1}, tensor.Vec{1, 2}) })
	}
}

// TestGradientsMatchFiniteDifference checks every loss's derivative numerically.
func TestGradientsMatchFiniteDifference(t *testing.T) {
	y := tensor.Vec{0.2, 0.7, 0.4}
	target := tensor.Vec{0, 1, 0.5}
	const h = 1e-6
	for _, l := range []Loss{MSE{}, Absolute{}, NewHuber(0.25), CrossEntropy{}, CrossEntropyMultiClass{}} {
		g := l.Gradient(y, target)
		for i := range y {
			up, down := y.Clone(), y.Clone()
			up[i] += h
			down[i] -= h
			numeric := (l.Value(up, target) - l.Value(down, target)) / (2 * h)
			assert.InDelta(t, numeric, g[i], 1e-5, "%T index %d", l, i)
		}
	}
}

func TestCrossEntropyClipsLog(t *testing.T) {
	v := CrossEntropyMultiClass{}.Value(tensor.Vec{0, 1}, tensor.Vec{1, 0})
	assert.False(t, math.IsInf(v, 0))
	assert.Greater(t, v, 20.0)
}

func TestBatchGradientsWithCost(t *testing.T) {
	y := []tensor.Tensor{{{1, 1}}, {{2, 2}}}
	tg := []tensor.Tensor{{{0, 0}}, {{0, 0}}}

	g, err := Gradients(MSE{}, y, tg, nil)
	require.NoError(t, err)
	assert.Equal(t, []tensor.Tensor{{{1, 1}}, {{2, 2}}}, g)

	cost := []tensor.Tensor{{{2, 0}}, {{3}}}
	g, err = Gradients(MSE{}, y, tg, cost)
	require.NoError(t, err)
	// second cost sample has the wrong shape and is ignored
	assert.Equal(t, []tensor.Tensor{{{2, 0}}, {{2, 2}}}, g)

	// a cost batch of the wrong length is ignored entirely
	g, err = Gradients(MSE{}, y, tg, cost[:1])
	require.NoError(t, err)
	assert.Equal(t, []tensor.Tensor{{{1, 1}}, {{2, 2}}}, g)
}

func TestBatchShapeErrors(t *testing.T) {
	_, err := Gradients(MSE{}, []tensor.Tensor{{{1}}}, []tensor.Tensor{{{1, 2}}}, nil)
	assert.ErrorIs(t, err, nnerr.ErrSizeMismatch)
	assert.Equal(t, nnerr.RuntimeShape, nnerr.KindOf(err))

	_, err = Total(MSE{}, []tensor.Tensor{{{1}}}, nil)
	assert.ErrorIs(t, err, nnerr.ErrSizeMismatch)

	assert.True(t, SameShape([]tensor.Tensor{{{1}, {2, 3}}}, []tensor.Tensor{{{0}, {0, 0}}}))
	assert.False(t, SameShape([]tensor.Tensor{{{1}}}, []tensor.Tensor{{{1}, {2}}}))
}

func TestTotal(t *testing.T) {
	sum, err := Total(MSE{}, []tensor.Tensor{{{1, 1}}, {{0, 2}}}, []tensor.Tensor{{{0, 0}}, {{0, 0}}})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, sum, 1e-12)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"mse", "absolute", "mae", "huber", "cross_entropy", "cross_entropy_multiclass"} {
		l, ok := ByName(name)
		assert.True(t, ok, name)
		assert.NotNil(t, l)
	}
	_, ok := ByName("hinge")
	assert.False(t, ok)
}
