package nodes

import "github.com/FlavioCFOliveira/tinynet/internal/layer"

// Ref identifies a layer inside a composition.
type Ref interface {
	ID() int
}

// Handle is returned when a layer is inserted. It keeps the concrete layer
// type, so callers get their layer back without a type assertion.
type Handle[T layer.Layer] struct {
	id    int
	layer T
}

// ID returns the insertion index of the layer.
func (h Handle[T]) ID() int { return h.id }

// Layer returns the layer with its concrete type.
func (h Handle[T]) Layer() T { return h.layer }
