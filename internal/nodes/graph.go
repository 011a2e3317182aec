package nodes

import (
	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
)

// Graph is a DAG of layers with designated input and output layers. Channel k
// of the network input feeds the k-th input port across the input layers, and
// the outputs are gathered from the output layers in the same fashion.
type Graph struct {
	Nodes
}

// Builder collects layers and connections, then produces a Graph.
type Builder struct {
	nodes []*node
	built bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Place adds l to the builder and returns a typed handle to it.
func Place[T layer.Layer](b *Builder, l T, own Ownership) (Handle[T], error) {
	const op = "graph.place"
	if b.built {
		return Handle[T]{}, nnerr.Errorf(nnerr.State, op, "builder already used")
	}
	probe := Nodes{nodes: b.nodes}
	if probe.contains(l) {
		return Handle[T]{}, nnerr.Errorf(nnerr.Construction, op, "%w: %s", nnerr.ErrDuplicate, l.Type())
	}
	n := newNode(len(b.nodes), l, own)
	b.nodes = append(b.nodes, n)
	return Handle[T]{id: n.id, layer: l}, nil
}

func (b *Builder) lookup(op string, r Ref) (*node, error) {
	id := r.ID()
	if id < 0 || id >= len(b.nodes) {
		return nil, nnerr.Errorf(nnerr.Construction, op, "unknown layer id %d", id)
	}
	return b.nodes[id], nil
}

// Connect wires output port headPort of head to input port tailPort of tail.
// The declared shapes of both ports must be equal.
func (b *Builder) Connect(head, tail Ref, headPort, tailPort int) error {
	const op = "graph.connect"
	if b.built {
		return nnerr.Errorf(nnerr.State, op, "builder already used")
	}
	h, err := b.lookup(op, head)
	if err != nil {
		return err
	}
	t, err := b.lookup(op, tail)
	if err != nil {
		return err
	}
	if headPort < 0 || headPort >= len(h.out) {
		return nnerr.Errorf(nnerr.Construction, op, "%w: %s has no output port %d", nnerr.ErrPort, h, headPort)
	}
	if tailPort < 0 || tailPort >= len(t.in) {
		return nnerr.Errorf(nnerr.Construction, op, "%w: %s has no input port %d", nnerr.ErrPort, t, tailPort)
	}
	if t.in[tailPort] != nil {
		return nnerr.Errorf(nnerr.Construction, op, "%w: input port %d of %s already connected", nnerr.ErrPort, tailPort, t)
	}
	out := h.out[headPort].shape
	in := t.layer.InShape()[tailPort]
	if out != in {
		return nnerr.Errorf(nnerr.Construction, op,
			"%w: %s port %d outputs %s, %s port %d expects %s",
			nnerr.ErrShapeMismatch, h, headPort, out, t, tailPort, in)
	}
	e := h.out[headPort]
	t.in[tailPort] = e
	e.next = append(e.next, t)
	return nil
}

// Build validates the connections and orders the layers topologically. The
// builder cannot be used afterwards.
func (b *Builder) Build(inputs, outputs []Ref) (*Graph, error) {
	const op = "graph.build"
	if b.built {
		return nil, nnerr.Errorf(nnerr.State, op, "builder already used")
	}
	if len(b.nodes) == 0 {
		return nil, nnerr.New(nnerr.Construction, op, nnerr.ErrEmpty)
	}
	ins, err := b.resolve(op, "input", inputs)
	if err != nil {
		return nil, err
	}
	outs, err := b.resolve(op, "output", outputs)
	if err != nil {
		return nil, err
	}

	isInput := make(map[*node]bool, len(ins))
	for _, n := range ins {
		isInput[n] = true
		for p, e := range n.in {
			if e != nil {
				return nil, nnerr.Errorf(nnerr.Construction, op,
					"%w: input %s has a predecessor on port %d", nnerr.ErrPort, n, p)
			}
		}
	}
	reached := reachable(ins)
	for _, n := range b.nodes {
		if !reached[n] {
			return nil, nnerr.Errorf(nnerr.Construction, op, "%w: %s", nnerr.ErrUnreachable, n)
		}
		if isInput[n] {
			continue
		}
		for p, e := range n.in {
			if e == nil {
				return nil, nnerr.Errorf(nnerr.Construction, op,
					"%w: input port %d of %s is not connected", nnerr.ErrPort, p, n)
			}
		}
	}

	order, err := b.sort(op, ins)
	if err != nil {
		return nil, err
	}

	for _, n := range ins {
		for p, s := range n.layer.InShape() {
			n.in[p] = &edge{shape: s}
		}
	}

	g := &Graph{Nodes: newNodes()}
	g.nodes = order
	g.inputs = ins
	g.outputs = outs
	for _, n := range order {
		g.adopt(n.layer)
	}
	b.built = true
	return g, nil
}

func (b *Builder) resolve(op, what string, refs []Ref) ([]*node, error) {
	if len(refs) == 0 {
		return nil, nnerr.Errorf(nnerr.Construction, op, "no %s layers", what)
	}
	seen := make(map[*node]bool, len(refs))
	ns := make([]*node, len(refs))
	for i, r := range refs {
		n, err := b.lookup(op, r)
		if err != nil {
			return nil, err
		}
		if seen[n] {
			return nil, nnerr.Errorf(nnerr.Construction, op, "%w: %s listed twice as %s", nnerr.ErrDuplicate, n, what)
		}
		seen[n] = true
		ns[i] = n
	}
	return ns, nil
}

// sort is Kahn's algorithm seeded with the input layers. A layer is queued once
// every one of its input ports has been satisfied by a scheduled producer, so
// an edge feeding two ports of the same layer is counted per port.
func (b *Builder) sort(op string, ins []*node) ([]*node, error) {
	satisfied := make(map[*node][]bool, len(b.nodes))
	for _, n := range b.nodes {
		satisfied[n] = make([]bool, len(n.in))
	}
	queued := make(map[*node]bool, len(b.nodes))

	queue := make([]*node, 0, len(b.nodes))
	for _, n := range ins {
		queue = append(queue, n)
		queued[n] = true
	}

	order := make([]*node, 0, len(b.nodes))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		order = append(order, cur)

		for _, e := range cur.out {
			for _, next := range e.next {
				ports := satisfied[next]
				for p, in := range next.in {
					if in == e {
						ports[p] = true
					}
				}
				if !queued[next] && allTrue(ports) {
					queued[next] = true
					queue = append(queue, next)
				}
			}
		}
	}

	if len(order) < len(b.nodes) {
		// Every layer is reachable and fully connected at this point, so a
		// layer left out waits on itself.
		for _, n := range b.nodes {
			if !queued[n] {
				return nil, nnerr.Errorf(nnerr.Construction, op, "%w: %s", nnerr.ErrCycle, n)
			}
		}
	}
	return order, nil
}

func allTrue(bs []bool) bool {
	for _, b := range bs {
		if !b {
			return false
		}
	}
	return true
}

func reachable(from []*node) map[*node]bool {
	seen := make(map[*node]bool)
	stack := append([]*node(nil), from...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		for _, e := range n.out {
			stack = append(stack, e.next...)
		}
	}
	return seen
}
