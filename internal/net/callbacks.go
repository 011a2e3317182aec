package net

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/FlavioCFOliveira/tinynet/internal/opt"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Callback defines the interface for training callbacks.
type Callback interface {
	OnTrainBegin(n *Network)
	OnTrainEnd(n *Network)
	OnEpochBegin(epoch int, n *Network)
	OnEpochEnd(epoch int, loss float64, n *Network)
	OnBatchBegin(batch int, n *Network)
	OnBatchEnd(batch int, loss float64, n *Network)
}

// BaseCallback provides default empty implementations for Callback.
type BaseCallback struct{}

func (c BaseCallback) OnTrainBegin(n *Network)                        {}
func (c BaseCallback) OnTrainEnd(n *Network)                          {}
func (c BaseCallback) OnEpochBegin(epoch int, n *Network)             {}
func (c BaseCallback) OnEpochEnd(epoch int, loss float64, n *Network) {}
func (c BaseCallback) OnBatchBegin(batch int, n *Network)             {}
func (c BaseCallback) OnBatchEnd(batch int, loss float64, n *Network) {}

// SchedulerCallback steps a learning rate scheduler at the end of each epoch.
type SchedulerCallback struct {
	BaseCallback
	scheduler opt.Scheduler
}

func NewSchedulerCallback(scheduler opt.Scheduler) *SchedulerCallback {
	return &SchedulerCallback{scheduler: scheduler}
}

func (c *SchedulerCallback) OnEpochEnd(epoch int, loss float64, n *Network) {
	c.scheduler.Step()
	c.scheduler.StepWithLoss(loss)
}

// EarlyStopping stops training when the epoch loss has stopped improving.
type EarlyStopping struct {
	BaseCallback
	Patience  int
	Threshold float64
	Out       io.Writer // nil means silent

	bestLoss     float64
	numBadEpochs int
	Stopped      bool
	StoppedEpoch int
}

func NewEarlyStopping(patience int, threshold float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		Threshold: threshold,
		bestLoss:  math.Inf(1),
	}
}

func (c *EarlyStopping) OnTrainBegin(n *Network) {
	c.bestLoss = math.Inf(1)
	c.numBadEpochs = 0
	c.Stopped = false
}

func (c *EarlyStopping) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.bestLoss-c.Threshold {
		c.bestLoss = loss
		c.numBadEpochs = 0
	} else {
		c.numBadEpochs++
	}

	if !c.Stopped && c.numBadEpochs >= c.Patience {
		if c.Out != nil {
			fmt.Fprintf(c.Out, "Early stopping at epoch %d: loss %.6f did not improve for %d epochs\n", epoch, loss, c.Patience)
		}
		c.Stopped = true
		c.StoppedEpoch = epoch
		n.Stop()
	}
}

// BestWeights keeps a copy of the weights from the epoch with the lowest loss
// and restores them when training ends.
type BestWeights struct {
	BaseCallback
	BestLoss  float64
	BestEpoch int

	// Err holds the error from restoring the snapshot, if any.
	Err error

	weights []tensor.Vec
}

func NewBestWeights() *BestWeights {
	return &BestWeights{BestLoss: math.Inf(1), BestEpoch: -1}
}

func (c *BestWeights) OnEpochEnd(epoch int, loss float64, n *Network) {
	if loss < c.BestLoss {
		c.BestLoss = loss
		c.BestEpoch = epoch
		c.weights = n.Weights()
	}
}

func (c *BestWeights) OnTrainBegin(n *Network) {
	c.BestLoss = math.Inf(1)
	c.BestEpoch = -1
	c.Err = nil
	c.weights = nil
}

func (c *BestWeights) OnTrainEnd(n *Network) {
	if c.weights == nil {
		return
	}
	if err := n.SetWeights(c.weights); err != nil {
		c.Err = fmt.Errorf("best weights: %w", err)
	}
}

// Logger logs training progress.
type Logger struct {
	BaseCallback
	Interval int
	Out      io.Writer // nil means stdout
}

func (c Logger) OnEpochEnd(epoch int, loss float64, n *Network) {
	if c.Interval > 0 && epoch%c.Interval == 0 {
		w := c.Out
		if w == nil {
			w = os.Stdout
		}
		fmt.Fprintf(w, "Epoch %d: loss = %.6f\n", epoch, loss)
	}
}
