package rastercalc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	err := newErr(NoOverlap, "operands do not overlap")
	assert.True(t, errors.Is(err, &Error{Kind: NoOverlap}))
	assert.False(t, errors.Is(err, &Error{Kind: SrsMismatch}))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := wrapErr(IoError, inner, "reading tile")
	assert.ErrorIs(t, err, inner)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "NoOverlap", NoOverlap.String())
	assert.Equal(t, "IoError", IoError.String())
}
