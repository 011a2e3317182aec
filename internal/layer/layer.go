// Package layer defines the contract every computation unit of a network
// implements, plus a handful of reference kernels.
//
// A layer exposes one tensor per input port and one per output port. Each port
// tensor holds every sample of the current minibatch, so Forward receives
// in[port][sample] and returns out[port][sample].
package layer

import (
	"math/rand"

	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Layer is a neural network layer.
type Layer interface {
	// InShape returns the declared shape of every input port.
	InShape() []tensor.Shape3D

	// OutShape returns the declared shape of every output port.
	OutShape() []tensor.Shape3D

	// Forward computes the outputs for a whole minibatch. The inputs are not
	// modified; the layer may cache what Backward needs.
	Forward(in []tensor.Tensor) ([]tensor.Tensor, error)

	// Backward consumes the gradient at every output port and returns the
	// gradient at every input port. Parameter gradients are added to the
	// accumulators returned by Params.
	Backward(outGrad []tensor.Tensor) ([]tensor.Tensor, error)

	// Params returns the trainable parameters. The slice and the pointers are
	// stable for the lifetime of the layer.
	Params() []*Param

	// Init (re)initialises the parameters.
	Init(rng *rand.Rand)

	// Type names the layer kind.
	Type() string
}

// Phase is the network mode.
type Phase int

const (
	Train Phase = iota
	Test
)

func (p Phase) String() string {
	if p == Test {
		return "test"
	}
	return "train"
}

// PhaseSetter is implemented by layers whose behaviour depends on the phase.
type PhaseSetter interface {
	SetPhase(Phase)
}

// PostUpdater is implemented by layers that need to react after the optimizer
// changed their parameters.
type PostUpdater interface {
	PostUpdate()
}

// ValueRanger reports the range of values a layer produces. The training
// driver uses it to turn class labels into target vectors.
type ValueRanger interface {
	OutValueRange() (lo, hi float64)
}

// Parallelizer is implemented by layers that can spread per-sample work over
// an executor.
type Parallelizer interface {
	SetExecutor(*parallel.Executor)
}

// InSize returns the total number of input features over all ports.
func InSize(l Layer) int {
	n := 0
	for _, s := range l.InShape() {
		n += s.Size()
	}
	return n
}

// OutSize returns the total number of output features over all ports.
func OutSize(l Layer) int {
	n := 0
	for _, s := range l.OutShape() {
		n += s.Size()
	}
	return n
}

// ParamCount returns the number of trainable scalars of l.
func ParamCount(l Layer) int {
	n := 0
	for _, p := range l.Params() {
		n += len(p.Value)
	}
	return n
}
