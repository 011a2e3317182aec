package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/tinynet/internal/activations"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Activation applies an activation function to a single port.
type Activation struct {
	shape tensor.Shape3D
	act   activations.Activation
	exec  *parallel.Executor

	x         tensor.Tensor
	y         tensor.Tensor
	forwarded int
}

// NewActivation creates an activation layer over the given shape.
func NewActivation(shape tensor.Shape3D, act activations.Activation) (*Activation, error) {
	if err := validShape("layer.activation", shape); err != nil {
		return nil, err
	}
	if act == nil {
		act = activations.Linear{}
	}
	return &Activation{shape: shape, act: act, forwarded: -1}, nil
}

func (a *Activation) InShape() []tensor.Shape3D         { return []tensor.Shape3D{a.shape} }
func (a *Activation) OutShape() []tensor.Shape3D        { return []tensor.Shape3D{a.shape} }
func (a *Activation) Params() []*Param                  { return nil }
func (a *Activation) Init(*rand.Rand)                   {}
func (a *Activation) Type() string                      { return "activation" }
func (a *Activation) OutValueRange() (float64, float64) { return a.act.Range() }
func (a *Activation) SetExecutor(e *parallel.Executor)  { a.exec = e }

func (a *Activation) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.activation.forward", in, a.InShape())
	if err != nil {
		return nil, err
	}
	a.x = in[0].Clone()
	a.y = tensor.Zeros(n, a.shape.Size())
	a.exec.For(true, 0, n, func(s int) {
		activate(a.act, a.y[s], a.x[s])
	})
	a.forwarded = n
	return []tensor.Tensor{a.y.Clone()}, nil
}

func (a *Activation) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.activation.backward", outGrad, a.OutShape(), a.forwarded); err != nil {
		return nil, err
	}
	dx := tensor.Zeros(a.forwarded, a.shape.Size())
	a.exec.For(true, 0, a.forwarded, func(s int) {
		deactivate(a.act, dx[s], a.x[s], a.y[s], outGrad[0][s])
	})
	return []tensor.Tensor{dx}, nil
}
