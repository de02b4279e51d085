package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Validation, KindOf(New(Validation, "bad input")))
	assert.Equal(t, NotFound, KindOf(Newf(NotFound, "lesson %d not found", 5)))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestKindOfUnwrapsWrappedChain(t *testing.T) {
	inner := New(Conflict, "already owned")
	outer := fmt.Errorf("handling purchase: %w", inner)

	assert.Equal(t, Conflict, KindOf(outer))
	assert.True(t, Is(outer, Conflict))
	assert.False(t, Is(outer, NotFound))
}

func TestIsNilError(t *testing.T) {
	assert.False(t, Is(nil, Internal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Internal, "saving purchase", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "internal")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "already owned", Message(New(Conflict, "already owned")))
	assert.Empty(t, Message(errors.New("raw sql error with table names")))
}
