// Package tensor provides the dense buffers exchanged between layers and the
// conversions between the sample-major and channel-major batch layouts.
package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
)

// Vec is a flat feature vector.
type Vec []float64

// Tensor is an ordered list of vectors. Depending on the layout it holds the
// channels of one sample or the samples of one channel.
type Tensor []Vec

// Clone returns a deep copy of v.
func (v Vec) Clone() Vec {
	if v == nil {
		return nil
	}
	out := make(Vec, len(v))
	copy(out, v)
	return out
}

// MaxIndex returns the index of the largest element, the first one on ties.
// It returns -1 for an empty vector.
func (v Vec) MaxIndex() int {
	if len(v) == 0 {
		return -1
	}
	return floats.MaxIdx(v)
}

// Fill sets every element to x.
func (v Vec) Fill(x float64) {
	for i := range v {
		v[i] = x
	}
}

// Zeros allocates a tensor of n zero vectors of the given size.
func Zeros(n, size int) Tensor {
	t := make(Tensor, n)
	for i := range t {
		t[i] = make(Vec, size)
	}
	return t
}

// Clone returns a deep copy of t.
func (t Tensor) Clone() Tensor {
	if t == nil {
		return nil
	}
	out := make(Tensor, len(t))
	for i, v := range t {
		out[i] = v.Clone()
	}
	return out
}

// Equal reports whether both tensors have identical shape and elements.
func Equal(a, b Tensor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) || !floats.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Fill sets every element of every vector to x.
func (t Tensor) Fill(x float64) {
	for _, v := range t {
		v.Fill(x)
	}
}

// Shape3D is the logical (width, height, depth) shape of one layer port.
type Shape3D struct {
	Width  int
	Height int
	Depth  int
}

// NewShape3D validates and returns a shape. All dimensions must be positive.
func NewShape3D(width, height, depth int) (Shape3D, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return Shape3D{}, nnerr.Errorf(nnerr.Construction, "tensor.shape",
			"%w: %dx%dx%d", nnerr.ErrInvalidShape, width, height, depth)
	}
	return Shape3D{Width: width, Height: height, Depth: depth}, nil
}

// Shape1D is shorthand for a flat vector port of n features.
func Shape1D(n int) Shape3D {
	return Shape3D{Width: n, Height: 1, Depth: 1}
}

// Size returns the number of elements.
func (s Shape3D) Size() int {
	return s.Width * s.Height * s.Depth
}

// Valid reports whether every dimension is positive.
func (s Shape3D) Valid() bool {
	return s.Width > 0 && s.Height > 0 && s.Depth > 0
}

func (s Shape3D) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Width, s.Height, s.Depth)
}
