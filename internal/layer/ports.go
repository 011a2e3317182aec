package layer

import (
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// checkPorts verifies that data holds one tensor per shape, that every port has
// the same number of samples, and that each sample has the shape's size.
// It returns the sample count.
func checkPorts(op string, data []tensor.Tensor, shapes []tensor.Shape3D) (int, error) {
	if len(data) != len(shapes) {
		return 0, nnerr.Errorf(nnerr.RuntimeShape, op,
			"%w: got %d ports, want %d", nnerr.ErrSizeMismatch, len(data), len(shapes))
	}
	if len(data) == 0 {
		return 0, nil
	}
	n := len(data[0])
	for p, port := range data {
		if len(port) != n {
			return 0, nnerr.Errorf(nnerr.RuntimeShape, op,
				"%w: port %d has %d samples, port 0 has %d", nnerr.ErrSizeMismatch, p, len(port), n)
		}
		want := shapes[p].Size()
		for s, v := range port {
			if len(v) != want {
				return 0, nnerr.Errorf(nnerr.RuntimeShape, op,
					"%w: port %d sample %d has %d elements, want %d", nnerr.ErrSizeMismatch, p, s, len(v), want)
			}
		}
	}
	return n, nil
}

// checkBackward verifies outGrad against the output shapes and the number of
// samples seen by the last Forward.
func checkBackward(op string, outGrad []tensor.Tensor, shapes []tensor.Shape3D, forwarded int) error {
	if forwarded < 0 {
		return nnerr.New(nnerr.State, op, nnerr.ErrNoForward)
	}
	n, err := checkPorts(op, outGrad, shapes)
	if err != nil {
		return err
	}
	if n != forwarded {
		return nnerr.Errorf(nnerr.RuntimeShape, op,
			"%w: gradient has %d samples, forward had %d", nnerr.ErrSizeMismatch, n, forwarded)
	}
	return nil
}

func validSize(op string, sizes ...int) error {
	for _, n := range sizes {
		if n <= 0 {
			return nnerr.Errorf(nnerr.Construction, op, "%w: size %d", nnerr.ErrInvalidShape, n)
		}
	}
	return nil
}

func validShape(op string, s tensor.Shape3D) error {
	if !s.Valid() {
		return nnerr.Errorf(nnerr.Construction, op, "%w: %s", nnerr.ErrInvalidShape, s)
	}
	return nil
}
