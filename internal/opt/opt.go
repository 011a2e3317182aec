// Package opt provides optimization algorithms.
//
// Optimizers update a parameter in place from its averaged gradient. Stateful
// optimizers keep their auxiliary buffers keyed by the *layer.Param, so two
// parameters never share state even when their values are equal.
package opt

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Optimizer updates network parameters based on gradients.
type Optimizer interface {
	// Update applies one step to p.Value using grad. grad has the length of p.Value.
	Update(grad tensor.Vec, p *layer.Param)

	// Reset drops all per-parameter state. Called once at the start of training.
	Reset()
}

// LRSetter is implemented by optimizers whose learning rate can be scheduled.
type LRSetter interface {
	LR() float64
	SetLR(lr float64)
}

// state returns the buffer stored for p, allocating it on first use.
func state(m map[*layer.Param]tensor.Vec, p *layer.Param) tensor.Vec {
	s, ok := m[p]
	if !ok {
		s = make(tensor.Vec, len(p.Value))
		m[p] = s
	}
	return s
}

// SGD (Stochastic Gradient Descent) optimizer: W -= lr * (dW + decay*W).
type SGD struct {
	LearningRate float64
	WeightDecay  float64
}

// NewSGD creates a plain gradient descent optimizer.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LearningRate: learningRate}
}

func (s *SGD) Update(grad tensor.Vec, p *layer.Param) {
	if s.WeightDecay != 0 {
		floats.AddScaled(p.Value, -s.LearningRate*s.WeightDecay, p.Value)
	}
	floats.AddScaled(p.Value, -s.LearningRate, grad)
}

func (s *SGD) Reset()           {}
func (s *SGD) LR() float64      { return s.LearningRate }
func (s *SGD) SetLR(lr float64) { s.LearningRate = lr }

// Momentum is SGD with a velocity term: V = mu*V - lr*(dW + decay*W); W += V.
type Momentum struct {
	LearningRate float64
	Mu           float64
	WeightDecay  float64

	velocity map[*layer.Param]tensor.Vec
}

// NewMomentum creates a momentum optimizer with mu = 0.9.
func NewMomentum(learningRate float64) *Momentum {
	return &Momentum{LearningRate: learningRate, Mu: 0.9}
}

func (m *Momentum) Update(grad tensor.Vec, p *layer.Param) {
	if m.velocity == nil {
		m.velocity = make(map[*layer.Param]tensor.Vec)
	}
	v := state(m.velocity, p)
	for i := range v {
		v[i] = m.Mu*v[i] - m.LearningRate*(grad[i]+m.WeightDecay*p.Value[i])
	}
	floats.Add(p.Value, v)
}

func (m *Momentum) Reset()           { m.velocity = nil }
func (m *Momentum) LR() float64      { return m.LearningRate }
func (m *Momentum) SetLR(lr float64) { m.LearningRate = lr }

// Adagrad scales each step by the inverse root of the accumulated squared gradient.
type Adagrad struct {
	LearningRate float64
	Epsilon      float64

	g2 map[*layer.Param]tensor.Vec
}

// NewAdagrad creates an Adagrad optimizer with lr = 0.01.
func NewAdagrad() *Adagrad {
	return &Adagrad{LearningRate: 0.01, Epsilon: 1e-8}
}

func (a *Adagrad) Update(grad tensor.Vec, p *layer.Param) {
	if a.g2 == nil {
		a.g2 = make(map[*layer.Param]tensor.Vec)
	}
	g := state(a.g2, p)
	for i := range g {
		g[i] += grad[i] * grad[i]
		p.Value[i] -= a.LearningRate * grad[i] / (math.Sqrt(g[i]) + a.Epsilon)
	}
}

func (a *Adagrad) Reset()           { a.g2 = nil }
func (a *Adagrad) LR() float64      { return a.LearningRate }
func (a *Adagrad) SetLR(lr float64) { a.LearningRate = lr }

// RMSProp keeps a moving average of the squared gradient.
type RMSProp struct {
	LearningRate float64
	Mu           float64 // decay of the moving average
	Epsilon      float64

	g2 map[*layer.Param]tensor.Vec
}

// NewRMSProp creates an RMSProp optimizer with lr = 0.0001 and mu = 0.99.
func NewRMSProp() *RMSProp {
	return &RMSProp{LearningRate: 0.0001, Mu: 0.99, Epsilon: 1e-8}
}

func (r *RMSProp) Update(grad tensor.Vec, p *layer.Param) {
	if r.g2 == nil {
		r.g2 = make(map[*layer.Param]tensor.Vec)
	}
	g := state(r.g2, p)
	for i := range g {
		g[i] = r.Mu*g[i] + (1-r.Mu)*grad[i]*grad[i]
		p.Value[i] -= r.LearningRate * grad[i] / math.Sqrt(g[i]+r.Epsilon)
	}
}

func (r *RMSProp) Reset()           { r.g2 = nil }
func (r *RMSProp) LR() float64      { return r.LearningRate }
func (r *RMSProp) SetLR(lr float64) { r.LearningRate = lr }

// Adam optimizer for faster convergence.
type Adam struct {
	LearningRate float64
	Beta1        float64 // Exponential decay rate for first moment
	Beta2        float64 // Exponential decay rate for second moment
	Epsilon      float64 // Small constant for numerical stability

	m, v map[*layer.Param]tensor.Vec
	t    map[*layer.Param]int
}

// NewAdam creates a new Adam optimizer with default values.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

func (a *Adam) Update(grad tensor.Vec, p *layer.Param) {
	if a.m == nil {
		a.m = make(map[*layer.Param]tensor.Vec)
		a.v = make(map[*layer.Param]tensor.Vec)
		a.t = make(map[*layer.Param]int)
	}
	m, v := state(a.m, p), state(a.v, p)
	a.t[p]++
	t := float64(a.t[p])
	c1 := 1 - math.Pow(a.Beta1, t)
	c2 := 1 - math.Pow(a.Beta2, t)
	for i := range m {
		m[i] = a.Beta1*m[i] + (1-a.Beta1)*grad[i]
		v[i] = a.Beta2*v[i] + (1-a.Beta2)*grad[i]*grad[i]
		p.Value[i] -= a.LearningRate * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.Epsilon)
	}
}

func (a *Adam) Reset() {
	a.m, a.v, a.t = nil, nil, nil
}

func (a *Adam) LR() float64      { return a.LearningRate }
func (a *Adam) SetLR(lr float64) { a.LearningRate = lr }

// ByName returns an optimizer by name with the given learning rate. A
// non-positive rate keeps the optimizer's default.
func ByName(name string, lr float64) (Optimizer, bool) {
	var o interface {
		Optimizer
		LRSetter
	}
	switch name {
	case "sgd":
		o = NewSGD(0.01)
	case "momentum":
		o = NewMomentum(0.01)
	case "adagrad":
		o = NewAdagrad()
	case "rmsprop":
		o = NewRMSProp()
	case "adam":
		o = NewAdam(0.001)
	default:
		return nil, false
	}
	if lr > 0 {
		o.SetLR(lr)
	}
	return o, true
}
