package socketio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	this []Value
	args [][]Value
	err  error
}

func (r *recorder) value() Value {
	return NewFunction(FunctionFunc(func(this Value, args ...Value) error {
		r.this = append(r.this, this)
		r.args = append(r.args, args)
		return r.err
	}))
}

func (r *recorder) count() int {
	return len(r.args)
}

func TestRegistryAddEvent(t *testing.T) {
	registry := NewRegistry()
	first := &recorder{}
	second := &recorder{}
	target1 := NewTarget()
	target2 := NewTarget()

	require.NoError(t, registry.AddEvent("x", first.value(), NewObject(target1)))
	_, has := target1.Attached("sio:x")
	assert.True(t, has)

	require.NoError(t, registry.AddEvent("x", second.value(), NewObject(target2)))
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, 0, target1.Len())
	assert.Equal(t, 1, target2.Len())

	assert.True(t, registry.Dispatch("x", NewString("payload")))
	assert.Equal(t, 0, first.count())
	require.Equal(t, 1, second.count())
	assert.Equal(t, "payload", second.args[0][0].Str())
	assert.Equal(t, target2, second.this[0].Object())

	l, has := registry.Lookup("x")
	assert.True(t, has)
	assert.Equal(t, target2, l.Target.Object())

	_, has = registry.Lookup("y")
	assert.False(t, has)
}

func TestRegistryInvalidListener(t *testing.T) {
	registry := NewRegistry()
	r := &recorder{}

	err := registry.AddEvent("x", NewString("not a function"), NewObject(NewTarget()))
	assert.ErrorIs(t, err, ErrInvalidListener)

	err = registry.AddEvent("x", r.value(), Null())
	assert.ErrorIs(t, err, ErrInvalidListener)

	err = registry.AddEvent("x", NewFunction(nil), NewObject(NewTarget()))
	assert.ErrorIs(t, err, ErrInvalidListener)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()
	r := &recorder{err: fmt.Errorf("listener error")}
	require.NoError(t, registry.AddEvent("x", r.value(), NewObject(NewTarget())))

	assert.False(t, registry.Dispatch("unknown", Null()))
	assert.Equal(t, 0, r.count())

	// the listener error is logged
	assert.True(t, registry.Dispatch("x", Null()))
	assert.Equal(t, 1, r.count())
}

func TestRegistryClear(t *testing.T) {
	registry := NewRegistry()
	target := NewTarget()
	require.NoError(t, registry.AddEvent("a", (&recorder{}).value(), NewObject(target)))
	require.NoError(t, registry.AddEvent("b", (&recorder{}).value(), NewObject(target)))
	assert.Equal(t, 2, target.Len())

	registry.Clear()
	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 0, target.Len())
	assert.False(t, registry.Dispatch("a", Null()))
}
