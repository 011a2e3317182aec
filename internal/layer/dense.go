package layer

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/tinynet/internal/activations"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// FullyConnected is a dense layer y = f(Wx + b).
// Weights are stored row-major, W[o][i] at index o*in + i.
type FullyConnected struct {
	inSize  int
	outSize int
	act     activations.Activation

	w *Param
	b *Param

	wInit Initializer
	bInit Initializer

	exec *parallel.Executor

	// Cached by Forward for Backward.
	x         tensor.Tensor
	preAct    tensor.Tensor
	out       tensor.Tensor
	forwarded int
}

// NewFullyConnected creates a dense layer. A nil activation means identity.
func NewFullyConnected(in, out int, act activations.Activation) (*FullyConnected, error) {
	if err := validSize("layer.fully_connected", in, out); err != nil {
		return nil, err
	}
	if act == nil {
		act = activations.Linear{}
	}
	return &FullyConnected{
		inSize:    in,
		outSize:   out,
		act:       act,
		w:         NewParam("W", Weight, out*in, in, out),
		b:         NewParam("b", Bias, out, in, out),
		wInit:     XavierInit{},
		bInit:     ConstantInit{},
		forwarded: -1,
	}, nil
}

func (d *FullyConnected) InShape() []tensor.Shape3D {
	return []tensor.Shape3D{tensor.Shape1D(d.inSize)}
}
func (d *FullyConnected) OutShape() []tensor.Shape3D {
	return []tensor.Shape3D{tensor.Shape1D(d.outSize)}
}
func (d *FullyConnected) Params() []*Param { return []*Param{d.w, d.b} }
func (d *FullyConnected) Type() string     { return "fully_connected" }

// Weights returns the weight parameter.
func (d *FullyConnected) Weights() *Param { return d.w }

// Biases returns the bias parameter.
func (d *FullyConnected) Biases() *Param { return d.b }

// Activation returns the activation function used by this layer.
func (d *FullyConnected) Activation() activations.Activation { return d.act }

// SetExecutor sets the executor used for per-sample work.
func (d *FullyConnected) SetExecutor(e *parallel.Executor) { d.exec = e }

// OutValueRange reports the activation's range.
func (d *FullyConnected) OutValueRange() (float64, float64) { return d.act.Range() }

// SetWeightInit replaces the weight initialiser (Xavier by default).
func (d *FullyConnected) SetWeightInit(i Initializer) { d.wInit = i }

// SetBiasInit replaces the bias initialiser (zero by default).
func (d *FullyConnected) SetBiasInit(i Initializer) { d.bInit = i }

// Init fills the weights and biases with their initialisers.
func (d *FullyConnected) Init(rng *rand.Rand) {
	d.wInit.Fill(d.w, rng)
	d.bInit.Fill(d.b, rng)
}

func (d *FullyConnected) weightMatrix() *mat.Dense {
	return mat.NewDense(d.outSize, d.inSize, d.w.Value)
}

// Forward computes f(Wx + b) for every sample.
func (d *FullyConnected) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	n, err := checkPorts("layer.fully_connected.forward", in, d.InShape())
	if err != nil {
		return nil, err
	}

	W := d.weightMatrix()
	d.x = in[0].Clone()
	d.preAct = tensor.Zeros(n, d.outSize)
	d.out = tensor.Zeros(n, d.outSize)

	d.exec.For(true, 0, n, func(s int) {
		z := mat.NewVecDense(d.outSize, d.preAct[s])
		z.MulVec(W, mat.NewVecDense(d.inSize, d.x[s]))
		floats.Add(d.preAct[s], d.b.Value)
		activate(d.act, d.out[s], d.preAct[s])
	})

	d.forwarded = n
	return []tensor.Tensor{d.out.Clone()}, nil
}

// Backward returns W^T dz and accumulates dz x^T into dW and dz into db.
func (d *FullyConnected) Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkBackward("layer.fully_connected.backward", outGrad, d.OutShape(), d.forwarded); err != nil {
		return nil, err
	}
	n := d.forwarded

	W := d.weightMatrix()
	dz := tensor.Zeros(n, d.outSize)
	dx := tensor.Zeros(n, d.inSize)

	d.exec.For(true, 0, n, func(s int) {
		deactivate(d.act, dz[s], d.preAct[s], d.out[s], outGrad[0][s])
		r := mat.NewVecDense(d.inSize, dx[s])
		r.MulVec(W.T(), mat.NewVecDense(d.outSize, dz[s]))
	})

	// Parameter gradients are summed on the calling goroutine so the result
	// does not depend on the executor.
	dW := mat.NewDense(d.outSize, d.inSize, d.w.Grad)
	for s := 0; s < n; s++ {
		dW.RankOne(dW, 1, mat.NewVecDense(d.outSize, dz[s]), mat.NewVecDense(d.inSize, d.x[s]))
		d.b.Accumulate(dz[s])
	}

	return []tensor.Tensor{dx}, nil
}

// activate writes act(x) into dst.
func activate(act activations.Activation, dst, x tensor.Vec) {
	if va, ok := act.(activations.VectorActivation); ok {
		va.ActivateVec(dst, x)
		return
	}
	for i, v := range x {
		dst[i] = act.Activate(v)
	}
}

// deactivate writes dL/dx into dx given the pre-activation x, the output y and dL/dy.
func deactivate(act activations.Activation, dx, x, y, dy tensor.Vec) {
	if va, ok := act.(activations.VectorActivation); ok {
		va.BackwardVec(dx, y, dy)
		return
	}
	for i, v := range x {
		dx[i] = dy[i] * act.Derivative(v)
	}
}
