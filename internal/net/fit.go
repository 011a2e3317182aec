package net

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/opt"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// FitConfig controls a training run. The zero value trains one epoch with
// minibatches of one sample.
type FitConfig struct {
	BatchSize    int  // samples per minibatch; 0 means 1
	Epochs       int  // 0 means 1; there is no zero-epoch run
	ResetWeights bool // reinitialise every layer before training

	// Costs weights the loss gradient elementwise, one tensor per sample with
	// the targets' layout. Samples whose cost shape differs are unweighted.
	Costs []tensor.Tensor

	Callbacks []Callback

	// OnBatch runs after every minibatch update with the mean sample loss.
	OnBatch func(batch int, loss float64)
	// OnEpoch runs after every epoch with the mean sample loss.
	OnEpoch func(epoch int, loss float64)
}

func (c FitConfig) withDefaults() FitConfig {
	if c.BatchSize == 0 {
		c.BatchSize = 1
	}
	if c.Epochs == 0 {
		c.Epochs = 1
	}
	return c
}

// Fit trains the network on sample-major inputs and targets.
//
// Inputs are validated before anything changes: a rejected call leaves the
// weights untouched. Every minibatch runs forward, loss gradient, backward and
// a weight update; the last minibatch may be smaller. A Stop request is
// honoured after the minibatch during which it was made: the epoch's
// OnEpochEnd callbacks and OnEpoch still run once for that epoch, then no
// further epoch starts. The network is left in the Test phase.
func (n *Network) Fit(o opt.Optimizer, inputs, targets []tensor.Tensor, cfg FitConfig) error {
	cfg = cfg.withDefaults()
	if err := n.validate(inputs, targets, cfg); err != nil {
		return err
	}

	n.net.SetPhase(layer.Train)
	defer n.net.SetPhase(layer.Test)
	if err := n.net.Setup(cfg.ResetWeights); err != nil {
		return err
	}
	o.Reset()
	n.stop.Store(false)

	for _, cb := range cfg.Callbacks {
		cb.OnTrainBegin(n)
	}
	defer func() {
		for _, cb := range cfg.Callbacks {
			cb.OnTrainEnd(n)
		}
	}()

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		for _, cb := range cfg.Callbacks {
			cb.OnEpochBegin(epoch, n)
		}

		var epochLoss float64
		batch := 0
		seen := 0
		for start := 0; start < len(inputs); start += cfg.BatchSize {
			end := min(start+cfg.BatchSize, len(inputs))
			for _, cb := range cfg.Callbacks {
				cb.OnBatchBegin(batch, n)
			}

			var cost []tensor.Tensor
			if cfg.Costs != nil {
				cost = cfg.Costs[start:end]
			}
			var batchLoss float64
			var err error
			if cfg.BatchSize == 1 {
				batchLoss, err = n.trainOnce(o, inputs[start], targets[start], cost)
			} else {
				batchLoss, err = n.trainBatch(o, inputs[start:end], targets[start:end], cost)
			}
			if err != nil {
				return fmt.Errorf("epoch %d batch %d: %w", epoch, batch, err)
			}
			size := end - start
			epochLoss += batchLoss * float64(size)
			seen += size

			for _, cb := range cfg.Callbacks {
				cb.OnBatchEnd(batch, batchLoss, n)
			}
			if cfg.OnBatch != nil {
				cfg.OnBatch(batch, batchLoss)
			}
			batch++
			if n.stop.Load() {
				break
			}
		}

		avg := epochLoss / float64(seen)
		for _, cb := range cfg.Callbacks {
			cb.OnEpochEnd(epoch, avg, n)
		}
		if cfg.OnEpoch != nil {
			cfg.OnEpoch(epoch, avg)
		}
		if n.stop.Load() {
			break
		}
	}
	return nil
}

// trainBatch runs one minibatch and returns the mean sample loss.
func (n *Network) trainBatch(o opt.Optimizer, in, t, cost []tensor.Tensor) (float64, error) {
	out, err := n.net.Forward(in)
	if err != nil {
		return 0, err
	}
	grads, err := loss.Gradients(n.loss, out, t, cost)
	if err != nil {
		return 0, err
	}
	total, err := loss.Total(n.loss, out, t)
	if err != nil {
		return 0, err
	}
	if _, err := n.net.Backward(grads); err != nil {
		return 0, err
	}
	n.net.UpdateWeights(o, len(in))
	return total / float64(len(in)), nil
}

// trainOnce is the single-sample path: no batch slicing or averaging.
func (n *Network) trainOnce(o opt.Optimizer, in, t tensor.Tensor, cost []tensor.Tensor) (float64, error) {
	out, err := n.net.Forward([]tensor.Tensor{in})
	if err != nil {
		return 0, err
	}
	y := out[0]
	var l float64
	grad := make(tensor.Tensor, len(y))
	for c := range y {
		grad[c] = n.loss.Gradient(y[c], t[c])
		l += n.loss.Value(y[c], t[c])
		if len(cost) == 1 && len(cost[0][c]) == len(grad[c]) {
			floats.Mul(grad[c], cost[0][c])
		}
	}
	if _, err := n.net.Backward([]tensor.Tensor{grad}); err != nil {
		return 0, err
	}
	n.net.UpdateWeights(o, 1)
	return l, nil
}

// FitVec trains a single-input, single-output network.
func (n *Network) FitVec(o opt.Optimizer, inputs, targets []tensor.Vec, cfg FitConfig) error {
	return n.Fit(o, tensor.Wrap(inputs), tensor.Wrap(targets), cfg)
}

// Train fits a classifier. Each label becomes a target vector filled with the
// low end of the output value range and the high end at the label's index.
func (n *Network) Train(o opt.Optimizer, inputs []tensor.Vec, labels []int, cfg FitConfig) error {
	targets, err := n.labelsToTargets(inputs, labels)
	if err != nil {
		return err
	}
	return n.FitVec(o, inputs, targets, cfg)
}

func (n *Network) labelsToTargets(inputs []tensor.Vec, labels []int) ([]tensor.Vec, error) {
	const op = "net.train"
	if len(inputs) != len(labels) {
		return nil, nnerr.Errorf(nnerr.InputContract, op,
			"%w: %d inputs, %d labels", nnerr.ErrSizeMismatch, len(inputs), len(labels))
	}
	outs := n.net.OutShapes()
	if len(outs) != 1 {
		return nil, nnerr.Errorf(nnerr.InputContract, op,
			"%w: labels need a single output channel, network has %d", nnerr.ErrSizeMismatch, len(outs))
	}
	dim := outs[0].Size()
	lo, hi := n.net.OutValueRange()
	targets := make([]tensor.Vec, len(labels))
	for i, label := range labels {
		if label < 0 || label >= dim {
			return nil, nnerr.Errorf(nnerr.InputContract, op,
				"label %d at sample %d outside [0, %d)", label, i, dim)
		}
		v := make(tensor.Vec, dim)
		v.Fill(lo)
		v[label] = hi
		targets[i] = v
	}
	return targets, nil
}

// validate rejects a Fit call before any state changes.
func (n *Network) validate(inputs, targets []tensor.Tensor, cfg FitConfig) error {
	const op = "net.fit"
	if n.net.Size() == 0 {
		return nnerr.New(nnerr.State, op, nnerr.ErrEmpty)
	}
	if len(inputs) != len(targets) {
		return nnerr.Errorf(nnerr.InputContract, op,
			"%w: %d inputs, %d targets", nnerr.ErrSizeMismatch, len(inputs), len(targets))
	}
	if cfg.BatchSize < 1 {
		return nnerr.Errorf(nnerr.InputContract, op, "batch size %d must be positive", cfg.BatchSize)
	}
	if cfg.Epochs < 1 {
		return nnerr.Errorf(nnerr.InputContract, op, "epochs %d must be positive", cfg.Epochs)
	}
	if len(inputs) == 0 || len(inputs) < cfg.BatchSize {
		return nnerr.Errorf(nnerr.InputContract, op,
			"%w: %d samples for batch size %d", nnerr.ErrSizeMismatch, len(inputs), cfg.BatchSize)
	}
	if err := checkSamples(op, "input", inputs, n.net.InShapes()); err != nil {
		return err
	}
	if err := checkSamples(op, "target", targets, n.net.OutShapes()); err != nil {
		return err
	}
	if cfg.Costs != nil && !loss.SameShape(cfg.Costs, targets) {
		return nnerr.Errorf(nnerr.InputContract, op, "%w: cost weights do not match targets", nnerr.ErrShapeMismatch)
	}
	return nil
}

func checkSamples(op, what string, samples []tensor.Tensor, shapes []tensor.Shape3D) error {
	for s, sample := range samples {
		if len(sample) != len(shapes) {
			return nnerr.Errorf(nnerr.InputContract, op,
				"%w: %s %d has %d channels, want %d", nnerr.ErrSizeMismatch, what, s, len(sample), len(shapes))
		}
		for c, v := range sample {
			if len(v) != shapes[c].Size() {
				return nnerr.Errorf(nnerr.InputContract, op,
					"%w: %s %d channel %d has %d features, want %d",
					nnerr.ErrSizeMismatch, what, s, c, len(v), shapes[c].Size())
			}
		}
	}
	return nil
}
