// Package tinynet is the public entry point: it re-exports the types and
// constructors needed to build, train and evaluate networks.
package tinynet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FlavioCFOliveira/tinynet/internal/activations"
	"github.com/FlavioCFOliveira/tinynet/internal/layer"
	"github.com/FlavioCFOliveira/tinynet/internal/loss"
	"github.com/FlavioCFOliveira/tinynet/internal/net"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/nodes"
	"github.com/FlavioCFOliveira/tinynet/internal/opt"
	"github.com/FlavioCFOliveira/tinynet/internal/parallel"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Re-export common types for easier access
type (
	Network     = net.Network
	FitConfig   = net.FitConfig
	Result      = net.Result
	Callback    = net.Callback
	Sequential  = nodes.Sequential
	Graph       = nodes.Graph
	Builder     = nodes.Builder
	Ref         = nodes.Ref
	Layer       = layer.Layer
	Optimizer   = opt.Optimizer
	Loss        = loss.Loss
	Activation  = activations.Activation
	Initializer = layer.Initializer
	Vec         = tensor.Vec
	Tensor      = tensor.Tensor
	Shape3D     = tensor.Shape3D
	Executor    = parallel.Executor
)

const (
	Owned    = nodes.Owned
	Borrowed = nodes.Borrowed
)

// Model creation
func NewSequential() *Sequential { return nodes.NewSequential() }
func NewBuilder() *Builder       { return nodes.NewBuilder() }

// Place adds l to a graph builder; see nodes.Place.
func Place[T Layer](b *Builder, l T, own nodes.Ownership) (nodes.Handle[T], error) {
	return nodes.Place(b, l, own)
}

// Append adds l to a chain; see nodes.Append.
func Append[T Layer](s *Sequential, l T, own nodes.Ownership) (nodes.Handle[T], error) {
	return nodes.Append(s, l, own)
}

// NewNetwork wraps a Sequential or Graph with a loss function.
func NewNetwork(n nodes.Net, l Loss) *Network { return net.New(n, l) }

// Activations
var (
	ReLU    = activations.ReLU{}
	Sigmoid = activations.Sigmoid{}
	Tanh    = activations.Tanh{}
	Softmax = activations.Softmax{}
	Linear  = activations.Linear{}
)

func LeakyReLU(alpha float64) Activation {
	return activations.NewLeakyReLU(alpha)
}

// Layers
func Dense(in, out int, act Activation) (*layer.FullyConnected, error) {
	return layer.NewFullyConnected(in, out, act)
}

func Dropout(in int, rate float64) (*layer.Dropout, error) {
	return layer.NewDropout(tensor.Shape1D(in), rate)
}

func Input(in int) (*layer.Input, error) {
	return layer.NewInput(tensor.Shape1D(in))
}

func Add(inputs, size int) (*layer.Add, error) {
	return layer.NewAdd(inputs, tensor.Shape1D(size))
}

func Concat(sizes ...int) (*layer.Concat, error) {
	shapes := make([]tensor.Shape3D, len(sizes))
	for i, s := range sizes {
		shapes[i] = tensor.Shape1D(s)
	}
	return layer.NewConcat(shapes...)
}

// Initializers, set on every layer with Network.WeightInit and Network.BiasInit
func XavierInit() Initializer                { return layer.XavierInit{} }
func LeCunInit() Initializer                 { return layer.LeCunInit{} }
func HeInit() Initializer                    { return layer.HeInit{} }
func GaussianInit(sigma float64) Initializer { return layer.GaussianInit{Sigma: sigma} }
func ConstantInit(v float64) Initializer     { return layer.ConstantInit{Value: v} }

// Losses
var (
	MSE                    = loss.MSE{}
	Absolute               = loss.Absolute{}
	CrossEntropy           = loss.CrossEntropy{}
	CrossEntropyMultiClass = loss.CrossEntropyMultiClass{}
)

// Optimizers
func SGD(lr float64) *opt.SGD   { return opt.NewSGD(lr) }
func Adam(lr float64) *opt.Adam { return opt.NewAdam(lr) }

// Executors
func NewExecutor(cfg parallel.Config) *Executor { return parallel.New(cfg) }
func DefaultExecutor() *Executor                { return parallel.New(parallel.DefaultConfig()) }

// ParseArch builds a Sequential of fully connected layers from a description
// such as "2-8:tanh-drop:0.1-1:sigmoid". The first field is the input size;
// each following field is either "size[:activation]" or "drop:rate".
func ParseArch(arch string) (*Sequential, error) {
	const op = "tinynet.parse_arch"
	fields := strings.Split(arch, "-")
	if len(fields) < 2 {
		return nil, nnerr.Errorf(nnerr.Construction, op, "architecture %q needs an input size and at least one layer", arch)
	}
	prev, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, nnerr.Errorf(nnerr.Construction, op, "input size %q: %w", fields[0], err)
	}

	s := nodes.NewSequential()
	for _, f := range fields[1:] {
		name, arg, _ := strings.Cut(f, ":")
		cfg := layer.Config{In: prev}
		if name == "drop" {
			rate, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return nil, nnerr.Errorf(nnerr.Construction, op, "dropout rate %q: %w", arg, err)
			}
			cfg.Type, cfg.Rate = "dropout", rate
		} else {
			size, err := strconv.Atoi(name)
			if err != nil {
				return nil, nnerr.Errorf(nnerr.Construction, op, "layer size %q: %w", name, err)
			}
			cfg.Type, cfg.Out, cfg.Activation = "fully_connected", size, arg
			prev = size
		}
		l, err := layer.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		if err := s.Add(l); err != nil {
			return nil, err
		}
	}
	return s, nil
}
