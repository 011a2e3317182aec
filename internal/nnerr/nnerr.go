// Package nnerr defines the error kinds reported by the network core.
package nnerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by the point at which it is detected.
type Kind int

const (
	// Unknown is returned by KindOf for errors not produced by this package.
	Unknown Kind = iota
	// Construction errors happen while building a graph: port shape mismatch,
	// cycles, invalid connections.
	Construction
	// InputContract errors reject a call before any computation starts.
	InputContract
	// RuntimeShape errors report a tensor of the wrong size reaching a node.
	RuntimeShape
	// Unsupported errors name a capability with no local implementation.
	Unsupported
	// State errors report a call made in the wrong lifecycle state.
	State
)

func (k Kind) String() string {
	switch k {
	case Construction:
		return "construction"
	case InputContract:
		return "input contract"
	case RuntimeShape:
		return "runtime shape"
	case Unsupported:
		return "unsupported"
	case State:
		return "state"
	default:
		return "unknown"
	}
}

var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrSizeMismatch  = errors.New("size mismatch")
	ErrInvalidShape  = errors.New("invalid shape")
	ErrCycle         = errors.New("graph contains a cycle")
	ErrUnreachable   = errors.New("node not reachable from graph inputs")
	ErrDuplicate     = errors.New("layer already present")
	ErrNotSetup      = errors.New("setup has not been called")
	ErrNoForward     = errors.New("backward called before forward")
	ErrUnsupported   = errors.New("unsupported")
	ErrEmpty         = errors.New("network has no layers")
	ErrPort          = errors.New("invalid port connection")
)

// Error carries the kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf formats a message and wraps it. %w verbs are honoured.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
