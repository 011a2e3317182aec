package layer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// ParamKind distinguishes weights from biases.
type ParamKind int

const (
	Weight ParamKind = iota
	Bias
)

func (k ParamKind) String() string {
	if k == Bias {
		return "bias"
	}
	return "weight"
}

// Param is a trainable tensor and its gradient accumulator.
// Optimizers key their auxiliary state on the *Param, never on its contents.
type Param struct {
	Name  string
	Kind  ParamKind
	Value tensor.Vec
	Grad  tensor.Vec

	// Fan sizes used by the initialisers.
	FanIn  int
	FanOut int
}

// NewParam allocates a zeroed parameter of the given size.
func NewParam(name string, kind ParamKind, size, fanIn, fanOut int) *Param {
	return &Param{
		Name:   name,
		Kind:   kind,
		Value:  make(tensor.Vec, size),
		Grad:   make(tensor.Vec, size),
		FanIn:  fanIn,
		FanOut: fanOut,
	}
}

// Accumulate adds g to the gradient. It panics if the lengths differ.
func (p *Param) Accumulate(g tensor.Vec) {
	floats.Add(p.Grad, g)
}

// ZeroGrad clears the gradient accumulator.
func (p *Param) ZeroGrad() {
	p.Grad.Fill(0)
}

// Initializer fills a parameter, typically from its fan sizes.
type Initializer interface {
	Fill(p *Param, rng *rand.Rand)
}

// Initialisable is implemented by layers whose initialisers can be replaced.
type Initialisable interface {
	SetWeightInit(Initializer)
	SetBiasInit(Initializer)
}

// XavierInit draws from U(-r, r), r = sqrt(Scale / (fanIn + fanOut)).
// A zero Scale means 6.
type XavierInit struct{ Scale float64 }

func (x XavierInit) Fill(p *Param, rng *rand.Rand) {
	scale := x.Scale
	if scale == 0 {
		scale = 6
	}
	uniform(p, rng, math.Sqrt(scale/float64(p.FanIn+p.FanOut)))
}

// LeCunInit draws from U(-r, r), r = Scale / sqrt(fanIn). A zero Scale means 1.
type LeCunInit struct{ Scale float64 }

func (l LeCunInit) Fill(p *Param, rng *rand.Rand) {
	scale := l.Scale
	if scale == 0 {
		scale = 1
	}
	uniform(p, rng, scale/math.Sqrt(float64(p.FanIn)))
}

// GaussianInit draws from N(0, Sigma^2). A zero Sigma means 1.
type GaussianInit struct{ Sigma float64 }

func (g GaussianInit) Fill(p *Param, rng *rand.Rand) {
	sigma := g.Sigma
	if sigma == 0 {
		sigma = 1
	}
	normal(p, rng, sigma)
}

// HeInit draws from N(0, Scale / fanIn). A zero Scale means 2.
type HeInit struct{ Scale float64 }

func (h HeInit) Fill(p *Param, rng *rand.Rand) {
	scale := h.Scale
	if scale == 0 {
		scale = 2
	}
	normal(p, rng, math.Sqrt(scale/float64(p.FanIn)))
}

// ConstantInit sets every element to Value.
type ConstantInit struct{ Value float64 }

func (c ConstantInit) Fill(p *Param, _ *rand.Rand) { p.Value.Fill(c.Value) }

// InitializerByName resolves xavier, lecun, gaussian, he and constant (zero),
// each with its default scale.
func InitializerByName(name string) (Initializer, bool) {
	switch name {
	case "xavier":
		return XavierInit{}, true
	case "lecun":
		return LeCunInit{}, true
	case "gaussian":
		return GaussianInit{}, true
	case "he":
		return HeInit{}, true
	case "constant", "zero":
		return ConstantInit{}, true
	}
	return nil, false
}

func uniform(p *Param, rng *rand.Rand, r float64) {
	for i := range p.Value {
		p.Value[i] = (rng.Float64()*2 - 1) * r
	}
}

func normal(p *Param, rng *rand.Rand, sigma float64) {
	for i := range p.Value {
		p.Value[i] = rng.NormFloat64() * sigma
	}
}

// Xavier fills p with U(-r, r), r = sqrt(6 / (fanIn + fanOut)).
func Xavier(p *Param, rng *rand.Rand) {
	XavierInit{}.Fill(p, rng)
}

// Constant fills p with v.
func Constant(p *Param, v float64) {
	ConstantInit{Value: v}.Fill(p, nil)
}
