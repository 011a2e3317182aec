// Package nodes holds layers in a fixed execution order and runs the forward
// and backward passes over them.
//
// Two compositions share the same container: Sequential, a linear chain
// wired on insertion, and Graph, an arbitrary DAG produced by a Builder and
// ordered by a topological sort. Callers exchange data in sample-major layout
// ([sample][channel]); ports are fed in channel-major layout ([channel][sample]).
package nodes

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"reflect"

	"gonum.org/v1/gonum/floats"

	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Ownership records who is responsible for a layer's lifetime.
type Ownership int

const (
	// Owned layers are closed by Close when they implement io.Closer.
	Owned Ownership = iota
	// Borrowed layers belong to the caller and are never closed by the container.
	Borrowed
)

func (o Ownership) String() string {
	if o == Borrowed {
		return "borrowed"
	}
	return "owned"
}

// Updater applies one gradient step to a parameter. opt.Optimizer satisfies it.
type Updater interface {
	Update(grad tensor.Vec, p *layer.Param)
}

// Net is the surface the training driver needs from a composition.
type Net interface {
	Setup(reset bool) error
	Forward(in []tensor.Tensor) ([]tensor.Tensor, error)
	Backward(grad []tensor.Tensor) ([]tensor.Tensor, error)
	UpdateWeights(u Updater, batchSize int)
	ClearGrads()
	SetPhase(layer.Phase)
	Phase() layer.Phase
	SetExecutor(*parallel.Executor)
	SetSeed(seed int64)
	WeightInit(layer.Initializer)
	BiasInit(layer.Initializer)
	Size() int
	Layer(i int) layer.Layer
	Params() []*layer.Param
	InShapes() []tensor.Shape3D
	OutShapes() []tensor.Shape3D
	OutValueRange() (lo, hi float64)
	Close() error
}

// edge carries one port's minibatch data and gradient. A nil prev marks an
// external edge feeding a graph input.
type edge struct {
	shape tensor.Shape3D
	data  tensor.Tensor
	grad  tensor.Tensor
	prev  *node
	next  []*node
}

type node struct {
	id          int
	layer       layer.Layer
	own         Ownership
	in          []*edge
	out         []*edge
	initialized bool
}

func newNode(id int, l layer.Layer, own Ownership) *node {
	n := &node{
		id:    id,
		layer: l,
		own:   own,
		in:    make([]*edge, len(l.InShape())),
		out:   make([]*edge, len(l.OutShape())),
	}
	for p, s := range l.OutShape() {
		n.out[p] = &edge{shape: s, prev: n}
	}
	return n
}

func (n *node) String() string {
	return fmt.Sprintf("node %d (%s)", n.id, n.layer.Type())
}

// Nodes is the container shared by Sequential and Graph.
type Nodes struct {
	nodes   []*node // execution order
	inputs  []*node
	outputs []*node

	rng       *rand.Rand
	exec      *parallel.Executor
	wInit     layer.Initializer
	bInit     layer.Initializer
	phase     layer.Phase
	ready     bool
	forwarded int
}

func newNodes() Nodes {
	return Nodes{rng: rand.New(rand.NewSource(1)), forwarded: -1}
}

// contains reports whether l is already held.
func (c *Nodes) contains(l layer.Layer) bool {
	if !reflect.TypeOf(l).Comparable() {
		return false
	}
	for _, n := range c.nodes {
		if reflect.TypeOf(n.layer) == reflect.TypeOf(l) && n.layer == l {
			return true
		}
	}
	return false
}

// adopt applies the container-wide settings to a freshly inserted layer.
func (c *Nodes) adopt(l layer.Layer) {
	if p, ok := l.(layer.PhaseSetter); ok {
		p.SetPhase(c.phase)
	}
	if p, ok := l.(layer.Parallelizer); ok {
		p.SetExecutor(c.exec)
	}
	if p, ok := l.(layer.Initialisable); ok {
		if c.wInit != nil {
			p.SetWeightInit(c.wInit)
		}
		if c.bInit != nil {
			p.SetBiasInit(c.bInit)
		}
	}
	c.ready = false
	c.forwarded = -1
}

// SetSeed reseeds the generator used by Setup.
func (c *Nodes) SetSeed(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// WeightInit sets the weight initialiser of every layer that accepts one,
// including layers added later. It takes effect at the next Setup(true) or for
// layers not yet initialised.
func (c *Nodes) WeightInit(i layer.Initializer) {
	c.wInit = i
	for _, n := range c.nodes {
		if p, ok := n.layer.(layer.Initialisable); ok {
			p.SetWeightInit(i)
		}
	}
}

// BiasInit is WeightInit for biases.
func (c *Nodes) BiasInit(i layer.Initializer) {
	c.bInit = i
	for _, n := range c.nodes {
		if p, ok := n.layer.(layer.Initialisable); ok {
			p.SetBiasInit(i)
		}
	}
}

// Setup initialises layers. With reset false, layers initialised by an
// earlier Setup keep their weights.
func (c *Nodes) Setup(reset bool) error {
	if len(c.nodes) == 0 {
		return nnerr.New(nnerr.State, "nodes.setup", nnerr.ErrEmpty)
	}
	for _, n := range c.nodes {
		if reset || !n.initialized {
			n.layer.Init(c.rng)
			n.initialized = true
		}
	}
	c.ready = true
	return nil
}

// SetPhase switches every layer to p.
func (c *Nodes) SetPhase(p layer.Phase) {
	c.phase = p
	for _, n := range c.nodes {
		if ps, ok := n.layer.(layer.PhaseSetter); ok {
			ps.SetPhase(p)
		}
	}
}

// Phase returns the current phase.
func (c *Nodes) Phase() layer.Phase { return c.phase }

// SetExecutor hands e to every layer that can use it. A nil executor runs
// everything on the calling goroutine.
func (c *Nodes) SetExecutor(e *parallel.Executor) {
	c.exec = e
	for _, n := range c.nodes {
		if p, ok := n.layer.(layer.Parallelizer); ok {
			p.SetExecutor(e)
		}
	}
}

// Size returns the number of layers.
func (c *Nodes) Size() int { return len(c.nodes) }

// Layer returns the i-th layer in execution order.
func (c *Nodes) Layer(i int) layer.Layer { return c.nodes[i].layer }

// Ownership returns the ownership of the i-th layer in execution order.
func (c *Nodes) Ownership(i int) Ownership { return c.nodes[i].own }

// Order returns the insertion ids of the layers in execution order.
func (c *Nodes) Order() []int {
	ids := make([]int, len(c.nodes))
	for i, n := range c.nodes {
		ids[i] = n.id
	}
	return ids
}

// Position returns the execution index of the layer behind r.
func (c *Nodes) Position(r Ref) (int, bool) {
	for i, n := range c.nodes {
		if n.id == r.ID() {
			return i, true
		}
	}
	return 0, false
}

// Params returns every trainable parameter in execution order.
func (c *Nodes) Params() []*layer.Param {
	var ps []*layer.Param
	for _, n := range c.nodes {
		ps = append(ps, n.layer.Params()...)
	}
	return ps
}

// InShapes returns the shapes of the external input ports, one per channel.
func (c *Nodes) InShapes() []tensor.Shape3D {
	var shapes []tensor.Shape3D
	for _, n := range c.inputs {
		shapes = append(shapes, n.layer.InShape()...)
	}
	return shapes
}

// OutShapes returns the shapes of the output ports, one per channel.
func (c *Nodes) OutShapes() []tensor.Shape3D {
	var shapes []tensor.Shape3D
	for _, n := range c.outputs {
		shapes = append(shapes, n.layer.OutShape()...)
	}
	return shapes
}

// InputCount returns the number of input channels.
func (c *Nodes) InputCount() int { return len(c.InShapes()) }

// OutputCount returns the number of output channels.
func (c *Nodes) OutputCount() int { return len(c.OutShapes()) }

// InDataSize returns the total number of input features per sample.
func (c *Nodes) InDataSize() int {
	n := 0
	for _, s := range c.InShapes() {
		n += s.Size()
	}
	return n
}

// OutDataSize returns the total number of output features per sample.
func (c *Nodes) OutDataSize() int {
	n := 0
	for _, s := range c.OutShapes() {
		n += s.Size()
	}
	return n
}

// OutValueRange reports the output range of the last output layer, or [0, 1]
// when it does not declare one.
func (c *Nodes) OutValueRange() (float64, float64) {
	if len(c.outputs) == 0 {
		return 0, 1
	}
	if vr, ok := c.outputs[len(c.outputs)-1].layer.(layer.ValueRanger); ok {
		return vr.OutValueRange()
	}
	return 0, 1
}

// Close closes every owned layer that implements io.Closer.
func (c *Nodes) Close() error {
	var errs []error
	for _, n := range c.nodes {
		if n.own != Owned {
			continue
		}
		if cl, ok := n.layer.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", n, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Nodes) externalEdges() []*edge {
	var es []*edge
	for _, n := range c.inputs {
		es = append(es, n.in...)
	}
	return es
}

func (c *Nodes) outputEdges() []*edge {
	var es []*edge
	for _, n := range c.outputs {
		es = append(es, n.out...)
	}
	return es
}

// checkChannels validates a channel-major batch against the edges it feeds.
func checkChannels(op string, chans []tensor.Tensor, edges []*edge, samples int) error {
	if len(chans) != len(edges) {
		return nnerr.Errorf(nnerr.RuntimeShape, op,
			"%w: got %d channels, network has %d", nnerr.ErrSizeMismatch, len(chans), len(edges))
	}
	for k, ch := range chans {
		if samples >= 0 && len(ch) != samples {
			return nnerr.Errorf(nnerr.RuntimeShape, op,
				"%w: channel %d has %d samples, want %d", nnerr.ErrSizeMismatch, k, len(ch), samples)
		}
		want := edges[k].shape.Size()
		for s, v := range ch {
			if len(v) != want {
				return nnerr.Errorf(nnerr.RuntimeShape, op,
					"%w: channel %d sample %d has %d features, want %d", nnerr.ErrSizeMismatch, k, s, len(v), want)
			}
		}
	}
	return nil
}

// Forward runs every layer once in execution order and returns the outputs in
// sample-major layout.
func (c *Nodes) Forward(in []tensor.Tensor) ([]tensor.Tensor, error) {
	const op = "nodes.forward"
	if !c.ready {
		return nil, nnerr.New(nnerr.State, op, nnerr.ErrNotSetup)
	}
	if len(in) == 0 {
		return nil, nnerr.Errorf(nnerr.RuntimeShape, op, "%w: empty batch", nnerr.ErrSizeMismatch)
	}
	chans, err := tensor.ChannelMajor(in)
	if err != nil {
		return nil, err
	}
	ext := c.externalEdges()
	if err := checkChannels(op, chans, ext, len(in)); err != nil {
		return nil, err
	}

	samples := len(in)
	c.forwarded = -1
	for k, e := range ext {
		e.data = chans[k]
		e.grad = tensor.Zeros(samples, e.shape.Size())
	}

	for _, n := range c.nodes {
		data := make([]tensor.Tensor, len(n.in))
		for p, e := range n.in {
			data[p] = e.data
		}
		out, err := n.layer.Forward(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n, err)
		}
		if err := checkChannels(op, out, n.out, samples); err != nil {
			return nil, fmt.Errorf("%s output: %w", n, err)
		}
		for p, e := range n.out {
			e.data = out[p]
			e.grad = tensor.Zeros(samples, e.shape.Size())
		}
	}
	c.forwarded = samples

	outs := c.outputEdges()
	result := make([]tensor.Tensor, len(outs))
	for k, e := range outs {
		result[k] = e.data
	}
	return tensor.SampleMajor(result)
}

// Backward injects grad (sample-major, one channel per output port) and runs
// every layer once in reverse execution order. Parameter gradients accumulate
// in the layers; the gradient with respect to the network input is returned
// in sample-major layout.
func (c *Nodes) Backward(grad []tensor.Tensor) ([]tensor.Tensor, error) {
	const op = "nodes.backward"
	if !c.ready {
		return nil, nnerr.New(nnerr.State, op, nnerr.ErrNotSetup)
	}
	if c.forwarded < 0 {
		return nil, nnerr.New(nnerr.State, op, nnerr.ErrNoForward)
	}
	if len(grad) != c.forwarded {
		return nil, nnerr.Errorf(nnerr.RuntimeShape, op,
			"%w: gradient has %d samples, forward had %d", nnerr.ErrSizeMismatch, len(grad), c.forwarded)
	}
	chans, err := tensor.ChannelMajor(grad)
	if err != nil {
		return nil, err
	}
	outs := c.outputEdges()
	if err := checkChannels(op, chans, outs, c.forwarded); err != nil {
		return nil, err
	}

	c.zeroEdgeGrads()
	for k, e := range outs {
		for s := range e.grad {
			floats.Add(e.grad[s], chans[k][s])
		}
	}

	for i := len(c.nodes) - 1; i >= 0; i-- {
		n := c.nodes[i]
		og := make([]tensor.Tensor, len(n.out))
		for p, e := range n.out {
			og[p] = e.grad
		}
		dx, err := n.layer.Backward(og)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n, err)
		}
		if err := checkChannels(op, dx, n.in, c.forwarded); err != nil {
			return nil, fmt.Errorf("%s input gradient: %w", n, err)
		}
		// An edge consumed by several layers collects the sum of their gradients.
		for p, e := range n.in {
			for s := range e.grad {
				floats.Add(e.grad[s], dx[p][s])
			}
		}
	}

	ext := c.externalEdges()
	result := make([]tensor.Tensor, len(ext))
	for k, e := range ext {
		result[k] = e.grad.Clone()
	}
	return tensor.SampleMajor(result)
}

func (c *Nodes) zeroEdgeGrads() {
	for _, n := range c.nodes {
		for _, e := range n.in {
			e.grad.Fill(0)
		}
		for _, e := range n.out {
			e.grad.Fill(0)
		}
	}
}

// UpdateWeights hands every parameter gradient, averaged over batchSize, to u
// and clears the accumulators.
func (c *Nodes) UpdateWeights(u Updater, batchSize int) {
	scale := 1 / float64(max(batchSize, 1))
	for _, n := range c.nodes {
		for _, p := range n.layer.Params() {
			g := p.Grad.Clone()
			floats.Scale(scale, g)
			u.Update(g, p)
			p.ZeroGrad()
		}
		if pu, ok := n.layer.(layer.PostUpdater); ok {
			pu.PostUpdate()
		}
	}
}

// ClearGrads zeroes every gradient accumulator without touching weights.
func (c *Nodes) ClearGrads() {
	for _, n := range c.nodes {
		for _, p := range n.layer.Params() {
			p.ZeroGrad()
		}
	}
	c.zeroEdgeGrads()
}
