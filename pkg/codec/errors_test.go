package codec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_KindMatching(t *testing.T) {
	err := Errorf(KindLengthMismatch, "bank info: got %d bytes", 3)

	assert.True(t, errors.Is(err, ErrLengthMismatch))
	assert.False(t, errors.Is(err, ErrReservedFieldViolation))
	assert.Equal(t, KindLengthMismatch, KindOf(err))
	assert.True(t, IsKind(err, KindLengthMismatch))
	assert.Equal(t, "bank info: got 3 bytes", err.Error())

	wrapped := fmt.Errorf("loading primary: %w", err)
	assert.True(t, errors.Is(wrapped, ErrLengthMismatch))
	assert.True(t, IsFormatError(wrapped))

	var e *Error
	assert.True(t, errors.As(wrapped, &e))
	assert.Equal(t, KindLengthMismatch, e.Kind)
}

func TestError_Wrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(KindInvalidState, cause, "saving metadata")

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "saving metadata: disk on fire", err.Error())
	assert.False(t, IsFormatError(err))
	assert.Equal(t, Kind(""), KindOf(cause))
}
