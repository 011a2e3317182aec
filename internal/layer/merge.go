package layer

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Add sums N input ports of the same shape into one output port.
type Add struct {
	inputs    int
	shape     tensor.Shape3D
	forwarded int
}

// NewAdd creates an elementwise sum over inputs ports of the given shape.
func NewAdd(inputs int, shape tensor.Shape3D) (*Add, error) {
	if err := validSize("layer.add", inputs); err != nil {
		return nil, err
	}
	if err := validShape("layer.add", shape); err != nil {
		return nil, err
	}
	return &Add{inputs: inputs, shape: shape, forwarded: -1}, nil
}

func (a *Add) InShape() []tensor.Shape3D {
	shapes := make([]tensor.Shape3D, a.inputs)
	for i := range shapes {
		shapes[i] = a.shape
	}
	return shapes
}

func (a *Add) OutShape() []tensor.Shape3D { return []tensor.Shape3D{a.shape} }
func (a *Add) Params() []*Param           { return nil }
func (a *Add) Init(*rand.Rand)            {}
func (a *Add) Type() string               { return "add" }

func (a *Add) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.add.forward", in, a.InShape())
	if err != nil {
		return nil, err
	}
	out := in[0].Clone()
	for _, port := range in[1:] {
		for s := range out {
			floats.Add(out[s], port[s])
		}
	}
	a.forwarded = n
	return []tensor.Tensor{out}, nil
}

// Backward hands the output gradient unchanged to every input.
func (a *Add) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.add.backward", outGrad, a.OutShape(), a.forwarded); err != nil {
		return nil, err
	}
	grads := make([]tensor.Tensor, a.inputs)
	for i := range grads {
		grads[i] = outGrad[0].Clone()
	}
	return grads, nil
}

// Concat joins its input ports end to end into one flat output port.
type Concat struct {
	in        []tensor.Shape3D
	outSize   int
	forwarded int
}

// NewConcat creates a concatenation of the given input shapes.
func NewConcat(in ...tensor.Shape3D) (*Concat, error) {
	if len(in) == 0 {
		return nil, nnerr.Errorf(nnerr.Construction, "layer.concat", "%w: no inputs", nnerr.ErrInvalidShape)
	}
	total := 0
	for _, s := range in {
		if err := validShape("layer.concat", s); err != nil {
			return nil, err
		}
		total += s.Size()
	}
	shapes := make([]tensor.Shape3D, len(in))
	copy(shapes, in)
	return &Concat{in: shapes, outSize: total, forwarded: -1}, nil
}

func (c *Concat) InShape() []tensor.Shape3D {
	shapes := make([]tensor.Shape3D, len(c.in))
	copy(shapes, c.in)
	return shapes
}

func (c *Concat) OutShape() []tensor.Shape3D { return []tensor.Shape3D{tensor.Shape1D(c.outSize)} }
func (c *Concat) Params() []*Param           { return nil }
func (c *Concat) Init(*rand.Rand)            {}
func (c *Concat) Type() string               { return "concat" }

func (c *Concat) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.concat.forward", in, c.in)
	if err != nil {
		return nil, err
	}
	out := make(tensor.Tensor, n)
	for s := range out {
		v := make(tensor.Vec, 0, c.outSize)
		for _, port := range in {
			v = append(v, port[s]...)
		}
		out[s] = v
	}
	c.forwarded = n
	return []tensor.Tensor{out}, nil
}

// Backward splits the output gradient back into the input ports.
func (c *Concat) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.concat.backward", outGrad, c.OutShape(), c.forwarded); err != nil {
		return nil, err
	}
	grads := make([]tensor.Tensor, len(c.in))
	offset := 0
	for p, shape := range c.in {
		size := shape.Size()
		grads[p] = make(tensor.Tensor, c.forwarded)
		for s, g := range outGrad[0] {
			grads[p][s] = g[offset : offset+size].Clone()
		}
		offset += size
	}
	return grads, nil
}
