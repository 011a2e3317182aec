// Package net provides the training driver: it feeds minibatches through a
// layer composition, turns the loss gradient into weight updates and
// evaluates trained networks.
package net

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync/atomic"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/nodes"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Network drives a Sequential or Graph composition with a loss function.
type Network struct {
	name string
	net  nodes.Net
	loss loss.Loss
	exec *parallel.Executor

	stop atomic.Bool
}

// New creates a network over n trained with lossFn.
func New(n nodes.Net, lossFn loss.Loss) *Network {
	return &Network{net: n, loss: lossFn}
}

// Name returns the network name.
func (n *Network) Name() string { return n.name }

// SetName sets the name printed by Summary.
func (n *Network) SetName(name string) { n.name = name }

// Loss function used by Fit.
func (n *Network) LossFunc() loss.Loss { return n.loss }

// Nodes returns the underlying composition.
func (n *Network) Nodes() nodes.Net { return n.net }

// SetExecutor sets the executor used by layers for per-sample work.
func (n *Network) SetExecutor(e *parallel.Executor) {
	n.exec = e
	n.net.SetExecutor(e)
}

// SetPhase switches every layer to p.
func (n *Network) SetPhase(p layer.Phase) { n.net.SetPhase(p) }

// Phase returns the current phase.
func (n *Network) Phase() layer.Phase { return n.net.Phase() }

// Stop asks a running Fit to return after the current minibatch. It is safe to
// call from any goroutine.
func (n *Network) Stop() { n.stop.Store(true) }

// Stopped reports whether a stop was requested during the last Fit.
func (n *Network) Stopped() bool { return n.stop.Load() }

// InitWeights reinitialises every layer.
func (n *Network) InitWeights() error { return n.net.Setup(true) }

// WeightInit sets the weight initialiser of every layer. Call InitWeights or
// Fit with ResetWeights to apply it to layers already initialised.
func (n *Network) WeightInit(i layer.Initializer) { n.net.WeightInit(i) }

// BiasInit sets the bias initialiser of every layer.
func (n *Network) BiasInit(i layer.Initializer) { n.net.BiasInit(i) }

// LayerCount returns the number of layers.
func (n *Network) LayerCount() int { return n.net.Size() }

// Layer returns the i-th layer in execution order.
func (n *Network) Layer(i int) layer.Layer { return n.net.Layer(i) }

// Close releases the layers owned by the composition.
func (n *Network) Close() error { return n.net.Close() }

// Weights returns a copy of every parameter in execution order.
func (n *Network) Weights() []tensor.Vec {
	ps := n.net.Params()
	ws := make([]tensor.Vec, len(ps))
	for i, p := range ps {
		ws[i] = p.Value.Clone()
	}
	return ws
}

// SetWeights overwrites every parameter. ws must match Weights in count and sizes.
func (n *Network) SetWeights(ws []tensor.Vec) error {
	ps := n.net.Params()
	if len(ws) != len(ps) {
		return nnerr.Errorf(nnerr.InputContract, "net.set_weights",
			"%w: got %d tensors, network has %d", nnerr.ErrSizeMismatch, len(ws), len(ps))
	}
	for i, p := range ps {
		if len(ws[i]) != len(p.Value) {
			return nnerr.Errorf(nnerr.InputContract, "net.set_weights",
				"%w: tensor %d has %d values, want %d", nnerr.ErrSizeMismatch, i, len(ws[i]), len(p.Value))
		}
	}
	for i, p := range ps {
		copy(p.Value, ws[i])
	}
	return nil
}

// SameWeights reports whether other has the same parameter layout and every
// value within eps of n's.
func (n *Network) SameWeights(other *Network, eps float64) bool {
	a, b := n.net.Params(), other.net.Params()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Value) != len(b[i].Value) {
			return false
		}
		for j := range a[i].Value {
			if math.Abs(a[i].Value[j]-b[i].Value[j]) > eps {
				return false
			}
		}
	}
	return true
}

// ensureSetup initialises layers that were never initialised.
func (n *Network) ensureSetup() error {
	return n.net.Setup(false)
}

// PredictBatch runs a forward pass over sample-major inputs.
func (n *Network) PredictBatch(in []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := n.ensureSetup(); err != nil {
		return nil, err
	}
	return n.net.Forward(in)
}

// PredictTensor runs a single multi-channel sample.
func (n *Network) PredictTensor(in tensor.Tensor) (tensor.Tensor, error) {
	out, err := n.PredictBatch([]tensor.Tensor{in})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// Predict runs a single-channel sample and returns the output channels joined
// end to end.
func (n *Network) Predict(in tensor.Vec) (tensor.Vec, error) {
	out, err := n.PredictTensor(tensor.Tensor{in})
	if err != nil {
		return nil, err
	}
	if len(out) == 1 {
		return out[0], nil
	}
	var flat tensor.Vec
	for _, v := range out {
		flat = append(flat, v...)
	}
	return flat, nil
}

// PredictLabel returns the index of the largest output.
func (n *Network) PredictLabel(in tensor.Vec) (int, error) {
	out, err := n.Predict(in)
	if err != nil {
		return 0, err
	}
	return out.MaxIndex(), nil
}

// PredictMaxValue returns the largest output.
func (n *Network) PredictMaxValue(in tensor.Vec) (float64, error) {
	out, err := n.Predict(in)
	if err != nil {
		return 0, err
	}
	return out[out.MaxIndex()], nil
}

// Loss returns the summed loss over a dataset without training.
func (n *Network) Loss(inputs, targets []tensor.Tensor) (float64, error) {
	out, err := n.PredictBatch(inputs)
	if err != nil {
		return 0, err
	}
	return loss.Total(n.loss, out, targets)
}

// Summary prints a summary of the network architecture.
func (n *Network) Summary(w io.Writer) {
	name := n.name
	if name == "" {
		name = "Network"
	}
	rule := strings.Repeat("_", 65)
	fmt.Fprintf(w, "Model: %s\n", name)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-25s %-20s %-10s\n", "Layer (type)", "Output Shape", "Param #")
	fmt.Fprintln(w, strings.Repeat("=", 65))

	total := 0
	for i := 0; i < n.net.Size(); i++ {
		l := n.net.Layer(i)
		shapes := make([]string, len(l.OutShape()))
		for p, s := range l.OutShape() {
			shapes[p] = s.String()
		}
		params := layer.ParamCount(l)
		total += params
		fmt.Fprintf(w, "%-25s %-20s %-10d\n", fmt.Sprintf("%s_%d", l.Type(), i), strings.Join(shapes, ","), params)
	}
	fmt.Fprintln(w, strings.Repeat("=", 65))
	fmt.Fprintf(w, "Total params: %d\n", total)
	fmt.Fprintln(w, rule)
}
