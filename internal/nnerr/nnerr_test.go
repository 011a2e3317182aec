package nnerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := Errorf(Construction, "sequential.add", "%w: out (4x1x1) != in (3x1x1)", ErrShapeMismatch)

	assert.Equal(t, Construction, KindOf(err))
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.Equal(t, "sequential.add: shape mismatch: out (4x1x1) != in (3x1x1)", err.Error())

	wrapped := fmt.Errorf("fit: %w", err)
	assert.Equal(t, Construction, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrShapeMismatch)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Unknown, KindOf(errors.New("boom")))
	assert.Equal(t, Unknown, KindOf(nil))
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{Construction, "construction"},
		{InputContract, "input contract"},
		{RuntimeShape, "runtime shape"},
		{Unsupported, "unsupported"},
		{State, "state"},
		{Unknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
