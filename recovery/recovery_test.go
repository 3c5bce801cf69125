package recovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_NoPanic(t *testing.T) {
	err := Do(func() error { return nil })
	assert.NoError(t, err)

	want := errors.New("boom")
	err = Do(func() error { return want })
	assert.ErrorIs(t, err, want)
}

func TestDo_Panic(t *testing.T) {
	err := Do(func() error { panic("kaboom") })
	require.Error(t, err)

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "kaboom", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, "panic: kaboom", pe.Error())
}

func TestDo_PanicWithError(t *testing.T) {
	cause := errors.New("cause")
	err := Do(func() error { panic(cause) })
	assert.ErrorIs(t, err, cause)
}

func TestDo_CustomHandler(t *testing.T) {
	replaced := errors.New("replaced")
	var gotStack []byte

	err := Do(func() error { panic(1) }, WithHandler(func(p any, stack []byte) error {
		gotStack = stack
		return replaced
	}), WithStackSize(1024))

	assert.ErrorIs(t, err, replaced)
	assert.NotEmpty(t, gotStack)
	assert.LessOrEqual(t, len(gotStack), 1024)
}
