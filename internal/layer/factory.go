package layer

import (
	"github.com/FlavioCFOliveira/tinynet/internal/activations"
	"github.com/FlavioCFOliveira/tinynet/internal/nnerr"
	"github.com/FlavioCFOliveira/tinynet/internal/tensor"
)

// Config describes a layer by type name. Fields a type does not use are ignored.
type Config struct {
	Type       string  // fully_connected, activation, dropout, input, add, concat
	In         int     // input features (per port for add and concat)
	Out        int     // output features (fully_connected)
	Activation string  // activation name, see activations.ByName
	Rate       float64 // dropout rate
	Inputs     int     // number of input ports (add, concat); 0 means 2
}

// New builds a layer from cfg. An unknown type or activation name is an
// Unsupported error that names the offending string.
func New(cfg Config) (Layer, error) {
	act, err := resolveActivation(cfg.Activation)
	if err != nil {
		return nil, err
	}
	inputs := cfg.Inputs
	if inputs == 0 {
		inputs = 2
	}

	switch cfg.Type {
	case "fully_connected", "fc", "dense":
		return asLayer(NewFullyConnected(cfg.In, cfg.Out, act))
	case "activation":
		return asLayer(NewActivation(tensor.Shape1D(cfg.In), act))
	case "dropout":
		return asLayer(NewDropout(tensor.Shape1D(cfg.In), cfg.Rate))
	case "input":
		return asLayer(NewInput(tensor.Shape1D(cfg.In)))
	case "add":
		return asLayer(NewAdd(inputs, tensor.Shape1D(cfg.In)))
	case "concat":
		shapes := make([]tensor.Shape3D, inputs)
		for i := range shapes {
			shapes[i] = tensor.Shape1D(cfg.In)
		}
		return asLayer(NewConcat(shapes...))
	}
	return nil, nnerr.Errorf(nnerr.Unsupported, "layer.new", "%w: layer type %q", nnerr.ErrUnsupported, cfg.Type)
}

func resolveActivation(name string) (activations.Activation, error) {
	if name == "" {
		return nil, nil
	}
	act, ok := activations.ByName(name)
	if !ok {
		return nil, nnerr.Errorf(nnerr.Unsupported, "layer.new", "%w: activation %q", nnerr.ErrUnsupported, name)
	}
	return act, nil
}

// asLayer keeps a failed constructor from producing a non-nil interface.
func asLayer(l Layer, err error) (Layer, error) {
	if err != nil {
		return nil, err
	}
	return l, nil
}
