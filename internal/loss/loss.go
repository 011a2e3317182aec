// Package loss provides loss functions and their gradients.
package loss

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Loss is a loss function with derivative. Both methods panic when y and t
// differ in length.
type Loss interface {
	// Value computes the loss between prediction y and target t.
	Value(y, t tensor.Vec) float64

	// Gradient computes dL/dy. The returned slice is newly allocated.
	Gradient(y, t tensor.Vec) tensor.Vec
}

const eps = 1e-10

func mustMatch(name string, y, t tensor.Vec) {
	if len(y) != len(t) {
		panic(name + ": prediction and target must have same length")
	}
}

// MSE (Mean Squared Error) loss.
type MSE struct{}

// Value computes (1/n) * sum((y - t)^2)
func (MSE) Value(y, t tensor.Vec) float64 {
	mustMatch("MSE", y, t)
	var sum float64
	for i := range y {
		d := y[i] - t[i]
		sum += d * d
	}
	return sum / float64(len(y))
}

// Gradient computes (2/n) * (y - t)
func (MSE) Gradient(y, t tensor.Vec) tensor.Vec {
	mustMatch("MSE", y, t)
	grad := make(tensor.Vec, len(y))
	floats.SubTo(grad, y, t)
	floats.Scale(2/float64(len(y)), grad)
	return grad
}

// Absolute is the mean absolute error.
type Absolute struct{}

func (Absolute) Value(y, t tensor.Vec) float64 {
	mustMatch("Absolute", y, t)
	return floats.Distance(y, t, 1) / float64(len(y))
}

func (Absolute) Gradient(y, t tensor.Vec) tensor.Vec {
	mustMatch("Absolute", y, t)
	grad := make(tensor.Vec, len(y))
	n := float64(len(y))
	for i := range y {
		switch d := y[i] - t[i]; {
		case d > 0:
			grad[i] = 1 / n
		case d < 0:
			grad[i] = -1 / n
		}
	}
	return grad
}

// Huber loss for robust regression.
type Huber struct {
	Delta float64
}

// NewHuber creates a Huber loss with the given threshold.
func NewHuber(delta float64) *Huber {
	return &Huber{Delta: delta}
}

func (h Huber) Value(y, t tensor.Vec) float64 {
	mustMatch("Huber", y, t)
	var sum float64
	for i := range y {
		d := math.Abs(y[i] - t[i])
		if d <= h.Delta {
			sum += 0.5 * d * d
		} else {
			sum += h.Delta * (d - 0.5*h.Delta)
		}
	}
	return sum / float64(len(y))
}

func (h Huber) Gradient(y, t tensor.Vec) tensor.Vec {
	mustMatch("Huber", y, t)
	grad := make(tensor.Vec, len(y))
	n := float64(len(y))
	for i := range y {
		d := y[i] - t[i]
		switch {
		case d > h.Delta:
			grad[i] = h.Delta / n
		case d < -h.Delta:
			grad[i] = -h.Delta / n
		default:
			grad[i] = d / n
		}
	}
	return grad
}

func clip(v float64) float64 {
	return math.Min(math.Max(v, eps), 1-eps)
}

// CrossEntropy is the binary cross entropy summed over outputs, for sigmoid
// style outputs in (0, 1).
type CrossEntropy struct{}

func (CrossEntropy) Value(y, t tensor.Vec) float64 {
	mustMatch("CrossEntropy", y, t)
	var sum float64
	for i := range y {
		p := clip(y[i])
		sum -= t[i]*math.Log(p) + (1-t[i])*math.Log(1-p)
	}
	return sum
}

func (CrossEntropy) Gradient(y, t tensor.Vec) tensor.Vec {
	mustMatch("CrossEntropy", y, t)
	grad := make(tensor.Vec, len(y))
	for i := range y {
		p := clip(y[i])
		grad[i] = (p - t[i]) / (p * (1 - p))
	}
	return grad
}

// CrossEntropyMultiClass is -sum(t * log(y)), for softmax outputs.
type CrossEntropyMultiClass struct{}

func (CrossEntropyMultiClass) Value(y, t tensor.Vec) float64 {
	mustMatch("CrossEntropyMultiClass", y, t)
	var sum float64
	for i := range y {
		sum -= t[i] * math.Log(clip(y[i]))
	}
	return sum
}

func (CrossEntropyMultiClass) Gradient(y, t tensor.Vec) tensor.Vec {
	mustMatch("CrossEntropyMultiClass", y, t)
	grad := make(tensor.Vec, len(y))
	for i := range y {
		grad[i] = -t[i] / clip(y[i])
	}
	return grad
}

// ByName resolves mse, absolute, huber, cross_entropy and
// cross_entropy_multiclass.
func ByName(name string) (Loss, bool) {
	switch name {
	case "mse":
		return MSE{}, true
	case "absolute", "mae":
		return Absolute{}, true
	case "huber":
		return NewHuber(1), true
	case "cross_entropy":
		return CrossEntropy{}, true
	case "cross_entropy_multiclass":
		return CrossEntropyMultiClass{}, true
	}
	return nil, false
}

// checkPair verifies that y and t have the same sample, channel and feature counts.
func checkPair(op string, y, t []tensor.Tensor) error {
	if len(y) != len(t) {
		return nnerr.Errorf(nnerr.RuntimeShape, op,
			"%w: %d predictions, %d targets", nnerr.ErrSizeMismatch, len(y), len(t))
	}
	for s := range y {
		if len(y[s]) != len(t[s]) {
			return nnerr.Errorf(nnerr.RuntimeShape, op,
				"%w: sample %d has %d output channels, %d target channels", nnerr.ErrSizeMismatch, s, len(y[s]), len(t[s]))
		}
		for c := range y[s] {
			if len(y[s][c]) != len(t[s][c]) {
				return nnerr.Errorf(nnerr.RuntimeShape, op,
					"%w: sample %d channel %d has %d outputs, %d targets",
					nnerr.ErrSizeMismatch, s, c, len(y[s][c]), len(t[s][c]))
			}
		}
	}
	return nil
}

// SameShape reports whether a and b have identical sample, channel and feature counts.
func SameShape(a, b []tensor.Tensor) bool {
	return checkPair("", a, b) == nil
}

// Gradients computes dL/dy for a sample-major batch. When cost is non-nil, a
// sample whose cost tensor has the gradient's shape is weighted elementwise by
// it; other samples are left unweighted.
func Gradients(l Loss, y, t, cost []tensor.Tensor) ([]tensor.Tensor, error) {
	if err := checkPair("loss.gradients", y, t); err != nil {
		return nil, err
	}
	grads := make([]tensor.Tensor, len(y))
	for s := range y {
		grads[s] = make(tensor.Tensor, len(y[s]))
		for c := range y[s] {
			grads[s][c] = l.Gradient(y[s][c], t[s][c])
		}
		if len(cost) == len(y) && sameSample(cost[s], grads[s]) {
			for c := range grads[s] {
				floats.Mul(grads[s][c], cost[s][c])
			}
		}
	}
	return grads, nil
}

func sameSample(a, b tensor.Tensor) bool {
	if len(a) != len(b) {
		return false
	}
	for c := range a {
		if len(a[c]) != len(b[c]) {
			return false
		}
	}
	return true
}

// Total sums the loss over every sample and channel.
func Total(l Loss, y, t []tensor.Tensor) (float64, error) {
	if err := checkPair("loss.total", y, t); err != nil {
		return 0, err
	}
	var sum float64
	for s := range y {
		for c := range y[s] {
			sum += l.Value(y[s][c], t[s][c])
		}
	}
	return sum, nil
}
