package nodes

import (
	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
)

// Sequential is a linear chain: the single output port of layer i feeds the
// single input port of layer i+1.
type Sequential struct {
	Nodes
}

// NewSequential creates an empty chain.
func NewSequential() *Sequential {
	return &Sequential{Nodes: newNodes()}
}

// Add appends a layer owned by the chain.
func (s *Sequential) Add(l layer.Layer) error {
	_, err := Append(s, l, Owned)
	return err
}

// AddBorrowed appends a layer that stays owned by the caller.
func (s *Sequential) AddBorrowed(l layer.Layer) error {
	_, err := Append(s, l, Borrowed)
	return err
}

// Append adds l to the end of the chain and returns a typed handle to it.
// The chain is left unchanged when l cannot be connected to the current tail.
func Append[T layer.Layer](s *Sequential, l T, own Ownership) (Handle[T], error) {
	const op = "sequential.add"
	if len(l.InShape()) != 1 || len(l.OutShape()) != 1 {
		return Handle[T]{}, nnerr.Errorf(nnerr.Construction, op,
			"%w: %s has %d inputs and %d outputs, want 1 and 1",
			nnerr.ErrPort, l.Type(), len(l.InShape()), len(l.OutShape()))
	}
	if s.contains(l) {
		return Handle[T]{}, nnerr.Errorf(nnerr.Construction, op, "%w: %s", nnerr.ErrDuplicate, l.Type())
	}

	n := newNode(len(s.nodes), l, own)
	var tail *node
	if len(s.nodes) == 0 {
		n.in[0] = &edge{shape: l.InShape()[0]}
	} else {
		tail = s.nodes[len(s.nodes)-1]
		n.in[0] = tail.out[0]
		tail.out[0].next = []*node{n}
	}
	s.nodes = append(s.nodes, n)

	if err := s.CheckConnectivity(); err != nil {
		s.nodes = s.nodes[:len(s.nodes)-1]
		if tail != nil {
			tail.out[0].next = nil
		}
		return Handle[T]{}, err
	}

	s.inputs = []*node{s.nodes[0]}
	s.outputs = []*node{n}
	s.adopt(l)
	return Handle[T]{id: n.id, layer: l}, nil
}

// CheckConnectivity verifies that every adjacent pair agrees on the shape of
// the port connecting them.
func (s *Sequential) CheckConnectivity() error {
	for i := 1; i < len(s.nodes); i++ {
		prev, cur := s.nodes[i-1], s.nodes[i]
		out := prev.layer.OutShape()[0]
		in := cur.layer.InShape()[0]
		if out != in {
			return nnerr.Errorf(nnerr.Construction, "sequential.check_connectivity",
				"%w: %s outputs %s, %s expects %s", nnerr.ErrShapeMismatch, prev, out, cur, in)
		}
	}
	return nil
}
