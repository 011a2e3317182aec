package layer

import (
	"fmt"
	"math/rand"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Dropout implements inverted dropout regularization.
// During training, each input is zeroed with probability rate and the
// survivors are scaled by 1/(1-rate). During inference inputs pass through.
type Dropout struct {
	shape tensor.Shape3D
	rate  float64
	phase Phase
	rng   *rand.Rand

	mask      tensor.Tensor
	forwarded int
}

// NewDropout creates a dropout layer. rate must lie in [0, 1).
func NewDropout(shape tensor.Shape3D, rate float64) (*Dropout, error) {
	if err := validShape("layer.dropout", shape); err != nil {
		return nil, err
	}
	if rate < 0 || rate >= 1 {
		return nil, nnerr.New(nnerr.Construction, "layer.dropout", fmt.Errorf("rate %v outside [0, 1)", rate))
	}
	return &Dropout{
		shape:     shape,
		rate:      rate,
		rng:       rand.New(rand.NewSource(42)),
		forwarded: -1,
	}, nil
}

func (d *Dropout) InShape() []tensor.Shape3D  { return []tensor.Shape3D{d.shape} }
func (d *Dropout) OutShape() []tensor.Shape3D { return []tensor.Shape3D{d.shape} }
func (d *Dropout) Params() []*Param           { return nil }
func (d *Dropout) Type() string               { return "dropout" }

// Rate returns the drop probability.
func (d *Dropout) Rate() float64 { return d.rate }

// SetPhase switches between masking (Train) and pass-through (Test).
func (d *Dropout) SetPhase(p Phase) { d.phase = p }

// Init derives the mask generator from rng.
func (d *Dropout) Init(rng *rand.Rand) {
	d.rng = rand.New(rand.NewSource(rng.Int63()))
}

func (d *Dropout) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.dropout.forward", in, d.InShape())
	if err != nil {
		return nil, err
	}
	out := in[0].Clone()
	d.mask = tensor.Zeros(n, d.shape.Size())
	if d.phase == Test {
		d.mask.Fill(1)
	} else {
		// The mask is drawn on the calling goroutine: rand.Rand is not safe for concurrent use.
		scale := 1 / (1 - d.rate)
		for s := range d.mask {
			for i := range d.mask[s] {
				if d.rng.Float64() >= d.rate {
					d.mask[s][i] = scale
				}
			}
		}
	}
	for s := range out {
		for i := range out[s] {
			out[s][i] *= d.mask[s][i]
		}
	}
	d.forwarded = n
	return []tensor.Tensor{out}, nil
}

func (d *Dropout) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.dropout.backward", outGrad, d.OutShape(), d.forwarded); err != nil {
		return nil, err
	}
	dx := outGrad[0].Clone()
	for s := range dx {
		for i := range dx[s] {
			dx[s][i] *= d.mask[s][i]
		}
	}
	return []tensor.Tensor{dx}, nil
}
