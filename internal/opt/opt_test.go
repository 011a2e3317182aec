package opt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

func param(values ...float64) *layer.Param {
	p := layer.NewParam("W", layer.Weight, len(values), 1, 1)
	copy(p.Value, values)
	return p
}

// TestSGDUpdate tests SGD step computation.
func TestSGDUpdate(t *testing.T) {
	sgd := NewSGD(0.1)
	p := param(1.0, 2.0, 3.0)

	sgd.Update(tensor.Vec{0.1, 0.2, 0.3}, p)

	// Expected: params - lr * gradients
	expected := []float64{0.99, 1.98, 2.97}
	for i := range expected {
		assert.InDelta(t, expected[i], p.Value[i], 1e-12)
	}
}

func TestSGDWeightDecay(t *testing.T) {
	sgd := &SGD{LearningRate: 0.1, WeightDecay: 0.5}
	p := param(2)
	sgd.Update(tensor.Vec{1}, p)
	// 2 - 0.1*(1 + 0.5*2)
	assert.InDelta(t, 1.8, p.Value[0], 1e-12)
}

func TestMomentum(t *testing.T) {
	m := NewMomentum(0.1)
	p := param(0)

	m.Update(tensor.Vec{1}, p)
	assert.InDelta(t, -0.1, p.Value[0], 1e-12)

	// v = 0.9*(-0.1) - 0.1 = -0.19
	m.Update(tensor.Vec{1}, p)
	assert.InDelta(t, -0.29, p.Value[0], 1e-12)

	m.Reset()
	m.Update(tensor.Vec{1}, p)
	assert.InDelta(t, -0.39, p.Value[0], 1e-12)
}

func TestAdagrad(t *testing.T) {
	a := NewAdagrad()
	p := param(1)
	a.Update(tensor.Vec{2}, p)
	// g2 = 4, step = 0.01 * 2 / 2
	assert.InDelta(t, 0.99, p.Value[0], 1e-9)
}

func TestRMSProp(t *testing.T) {
	r := NewRMSProp()
	p := param(1)
	r.Update(tensor.Vec{1}, p)
	// g2 = 0.01, step = 1e-4 / sqrt(0.01)
	assert.InDelta(t, 1-1e-3, p.Value[0], 1e-9)
}

func TestAdamFirstStep(t *testing.T) {
	a := NewAdam(0.001)
	p := param(1, 1)
	a.Update(tensor.Vec{0.5, -3}, p)

	// bias-corrected first step moves each weight by about lr*sign(g)
	assert.InDelta(t, 1-0.001, p.Value[0], 1e-6)
	assert.InDelta(t, 1+0.001, p.Value[1], 1e-6)
}

// TestStateKeyedByParam checks that equal-valued parameters keep separate state.
func TestStateKeyedByParam(t *testing.T) {
	a := NewAdam(0.01)
	p1 := param(1)
	p2 := param(1)

	a.Update(tensor.Vec{1}, p1)
	a.Update(tensor.Vec{1}, p1)
	a.Update(tensor.Vec{1}, p2)

	fresh := NewAdam(0.01)
	p3 := param(1)
	fresh.Update(tensor.Vec{1}, p3)

	assert.Equal(t, p3.Value, p2.Value)
	assert.NotEqual(t, p1.Value, p2.Value)
	assert.Equal(t, 2, a.t[p1])
	assert.Equal(t, 1, a.t[p2])

	a.Reset()
	assert.Nil(t, a.m)
}

func TestByName(t *testing.T) {
	for _, name := range []string{"sgd", "momentum", "adagrad", "rmsprop", "adam"} {
		o, ok := ByName(name, 0.5)
		require.True(t, ok, name)
		lr, ok := o.(LRSetter)
		require.True(t, ok, name)
		assert.Equal(t, 0.5, lr.LR(), name)
	}
	o, ok := ByName("adam", 0)
	require.True(t, ok)
	assert.Equal(t, 0.001, o.(LRSetter).LR())

	_, ok = ByName("lbfgs", 0.1)
	assert.False(t, ok)
}

func TestStepLR(t *testing.T) {
	sgd := NewSGD(1)
	s := NewStepLR(sgd, 2, 0.5)
	s.Step()
	assert.Equal(t, 1.0, s.GetLR())
	s.Step()
	assert.Equal(t, 0.5, s.GetLR())
	s.Step()
	s.Step()
	assert.Equal(t, 0.25, s.GetLR())
}

func TestExponentialLR(t *testing.T) {
	sgd := NewSGD(1)
	s := NewExponentialLR(sgd, 0.9)
	s.Step()
	s.Step()
	assert.InDelta(t, 0.81, s.GetLR(), 1e-12)
	assert.InDelta(t, 0.81, sgd.LearningRate, 1e-12)
}

func TestReduceLROnPlateau(t *testing.T) {
	sgd := NewSGD(1)
	s := NewReduceLROnPlateau(sgd, 0.1, 2, 0, 0.005)

	s.StepWithLoss(1.0)
	s.StepWithLoss(1.0)
	assert.Equal(t, 1.0, s.GetLR())
	s.StepWithLoss(1.0)
	assert.InDelta(t, 0.1, s.GetLR(), 1e-12)

	s.StepWithLoss(0.5)
	s.StepWithLoss(0.6)
	s.StepWithLoss(0.6)
	assert.InDelta(t, 0.01, s.GetLR(), 1e-12)

	s.StepWithLoss(0.7)
	s.StepWithLoss(0.7)
	assert.InDelta(t, 0.005, s.GetLR(), 1e-12)
	assert.False(t, math.IsNaN(s.GetLR()))
}
