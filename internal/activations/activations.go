// Package activations provides activation functions for the elementwise layers.
package activations

import "math"

// Activation is an activation function with derivative.
type Activation interface {
	// Activate computes f(x)
	Activate(x float64) float64

	// Derivative computes f'(x) at the pre-activation value x
	Derivative(x float64) float64

	// Range returns the output value range used to build one-hot targets.
	Range() (lo, hi float64)
}

// VectorActivation is implemented by activations that couple all elements of a
// vector, such as Softmax.
type VectorActivation interface {
	Activation

	// ActivateVec writes f(x) into dst.
	ActivateVec(dst, x []float64)

	// BackwardVec writes dL/dx into dx given the output y and dL/dy.
	BackwardVec(dx, y, dy []float64)
}

// ReLU activation function.
type ReLU struct{}

// Activate computes max(0, x)
func (r ReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

// Derivative returns 1 if x > 0, else 0
func (r ReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func (r ReLU) Range() (float64, float64) { return 0.1, 0.9 }

// LeakyReLU activation function to prevent dying neurons.
type LeakyReLU struct {
	Alpha float64 // Slope for x <= 0
}

// NewLeakyReLU creates a LeakyReLU with the given alpha value.
func NewLeakyReLU(alpha float64) *LeakyReLU {
	return &LeakyReLU{Alpha: alpha}
}

// Activate computes x if x > 0, else alpha*x
func (l *LeakyReLU) Activate(x float64) float64 {
	if x > 0 {
		return x
	}
	return l.Alpha * x
}

// Derivative returns 1 if x > 0, else alpha
func (l *LeakyReLU) Derivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return l.Alpha
}

func (l *LeakyReLU) Range() (float64, float64) { return 0.1, 0.9 }

// Sigmoid activation function.
type Sigmoid struct{}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Activate computes sigmoid(x)
func (s Sigmoid) Activate(x float64) float64 {
	return sigmoid(x)
}

// Derivative computes sigmoid(x) * (1 - sigmoid(x))
func (s Sigmoid) Derivative(x float64) float64 {
	sigma := sigmoid(x)
	return sigma * (1 - sigma)
}

func (s Sigmoid) Range() (float64, float64) { return 0.1, 0.9 }

// Tanh activation function.
type Tanh struct{}

// Activate computes tanh(x)
func (t Tanh) Activate(x float64) float64 {
	return math.Tanh(x)
}

// Derivative computes 1 - tanh(x)^2
func (t Tanh) Derivative(x float64) float64 {
	tanhX := math.Tanh(x)
	return 1 - tanhX*tanhX
}

func (t Tanh) Range() (float64, float64) { return -0.8, 0.8 }

// Linear is the identity activation.
type Linear struct{}

func (Linear) Activate(x float64) float64   { return x }
func (Linear) Derivative(x float64) float64 { return 1 }
func (Linear) Range() (float64, float64)    { return 0.1, 0.9 }

// Softmax activation function for output layer.
type Softmax struct{}

// Activate is not defined elementwise.
func (s Softmax) Activate(x float64) float64 {
	panic("Softmax.Activate: use ActivateVec for Softmax")
}

// Derivative is not defined elementwise.
func (s Softmax) Derivative(x float64) float64 {
	panic("Softmax.Derivative: use BackwardVec for Softmax")
}

func (s Softmax) Range() (float64, float64) { return 0, 1 }

// ActivateVec computes exp(x) / sum(exp(x)) with max subtraction for stability.
func (s Softmax) ActivateVec(dst, x []float64) {
	maxVal := x[0]
	for i := 1; i < len(x); i++ {
		if x[i] > maxVal {
			maxVal = x[i]
		}
	}

	sum := 0.0
	for i := range x {
		dst[i] = math.Exp(x[i] - maxVal)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

// BackwardVec applies the softmax Jacobian: dx_i = y_i * (dy_i - sum_j dy_j*y_j).
func (s Softmax) BackwardVec(dx, y, dy []float64) {
	dot := 0.0
	for j := range y {
		dot += dy[j] * y[j]
	}
	for i := range y {
		dx[i] = y[i] * (dy[i] - dot)
	}
}

// ByName resolves the names accepted by the layer factory.
func ByName(name string) (Activation, bool) {
	switch name {
	case "relu":
		return ReLU{}, true
	case "leaky_relu":
		return NewLeakyReLU(0.01), true
	case "sigmoid":
		return Sigmoid{}, true
	case "tanh":
		return Tanh{}, true
	case "linear", "identity":
		return Linear{}, true
	case "softmax":
		return Softmax{}, true
	}
	return nil, false
}
