package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Input is an identity layer used to name a graph entry point.
type Input struct {
	shape     tensor.Shape3D
	forwarded int
}

// NewInput creates an input layer of the given shape.
func NewInput(shape tensor.Shape3D) (*Input, error) {
	if err := validShape("layer.input", shape); err != nil {
		return nil, err
	}
	return &Input{shape: shape, forwarded: -1}, nil
}

func (l *Input) InShape() []tensor.Shape3D  { return []tensor.Shape3D{l.shape} }
func (l *Input) OutShape() []tensor.Shape3D { return []tensor.Shape3D{l.shape} }
func (l *Input) Params() []*Param           { return nil }
func (l *Input) Init(*rand.Rand)            {}
func (l *Input) Type() string               { return "input" }

func (l *Input) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.input.forward", in, l.InShape())
	if err != nil {
		return nil, err
	}
	l.forwarded = n
	return []tensor.Tensor{in[0].Clone()}, nil
}

func (l *Input) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.input.backward", outGrad, l.OutShape(), l.forwarded); err != nil {
		return nil, err
	}
	return []tensor.Tensor{outGrad[0].Clone()}, nil
}
