package socketio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/siobridge/message"
)

func TestDecode(t *testing.T) {
	assert.Equal(t, KindNull, Decode(message.Null()).Kind())
	assert.Equal(t, KindNull, Decode(nil).Kind())
	assert.True(t, Decode(message.Boolean(true)).Bool())
	assert.Equal(t, 42.0, Decode(message.Integer(42)).Number())
	assert.Equal(t, 0.5, Decode(message.Double(0.5)).Number())
	assert.Equal(t, "hello", Decode(message.String("hello")).Str())

	src := []byte{0x00, 0x01, 0x02}
	msg := message.Binary(src)
	v := Decode(msg)
	assert.Equal(t, KindArrayBuffer, v.Kind())
	assert.Equal(t, src, v.Bytes())

	// the decoded buffer is a copy
	v.Bytes()[0] = 0xff
	assert.Equal(t, byte(0x00), msg.GetBinary()[0])

	assert.Equal(t, KindNull, Decode(message.Array(message.Integer(1))).Kind())
	assert.Equal(t, KindNull, Decode(message.Object(map[string]*message.Message{"a": message.Null()})).Kind())
}

func TestDecodeList(t *testing.T) {
	list := message.List{}
	list.Push(message.String("a"), message.Integer(1), nil)
	values := DecodeList(list)
	require.Len(t, values, 3)
	assert.Equal(t, "a", values[0].Str())
	assert.Equal(t, 1.0, values[1].Number())
	assert.Equal(t, KindNull, values[2].Kind())
	assert.Empty(t, DecodeList(nil))
}

func TestEncode(t *testing.T) {
	msg, err := Encode(Undefined())
	require.NoError(t, err)
	assert.Equal(t, message.FlagNull, msg.Flag())

	msg, err = Encode(NewBoolean(true))
	require.NoError(t, err)
	assert.True(t, msg.GetBool())

	msg, err = Encode(NewNumber(42))
	require.NoError(t, err)
	assert.Equal(t, message.FlagDouble, msg.Flag())
	assert.Equal(t, 42.0, msg.GetDouble())

	msg, err = Encode(NewString("hi"))
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.GetString())

	buf := []byte{1, 2, 3}
	msg, err = Encode(NewBufferView(buf))
	require.NoError(t, err)
	assert.Equal(t, message.FlagBinary, msg.Flag())
	buf[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, msg.GetBinary())

	msg, err = Encode(NewObject(NewTarget()))
	assert.True(t, errors.Is(err, ErrUnsupportedValueKind))
	assert.Equal(t, message.FlagNull, msg.Flag())

	msg, err = Encode(NewFunction(FunctionFunc(func(Value, ...Value) error { return nil })))
	assert.ErrorIs(t, err, ErrUnsupportedValueKind)
	assert.Equal(t, message.FlagNull, msg.Flag())
}

func TestCodecRoundTrip(t *testing.T) {
	values := []Value{
		Null(),
		NewBoolean(true),
		NewBoolean(false),
		NewNumber(0),
		NewNumber(-12),
		NewNumber(3.25),
		NewString(""),
		NewString("socket.io"),
		NewArrayBuffer([]byte{}),
		NewArrayBuffer([]byte{0x00, 0x10, 0xff}),
	}

	for _, v := range values {
		msg, err := Encode(v)
		require.NoError(t, err)
		assert.True(t, Equal(v, Decode(msg)), "round trip %s", v)
	}

	// a view comes back as an array buffer
	msg, err := Encode(NewBufferView([]byte("view")))
	require.NoError(t, err)
	assert.Equal(t, []byte("view"), Decode(msg).Bytes())

	// undefined comes back as null
	msg, err = Encode(Undefined())
	require.NoError(t, err)
	assert.Equal(t, KindNull, Decode(msg).Kind())
}

func TestEncodeArgs(t *testing.T) {
	ack := FunctionFunc(func(Value, ...Value) error { return nil })

	list, fn, err := EncodeArgs([]Value{NewString("hello"), NewNumber(42), NewFunction(ack)})
	require.NoError(t, err)
	assert.NotNil(t, fn)
	require.Len(t, list, 2)
	assert.Equal(t, "hello", list[0].GetString())
	assert.Equal(t, message.FlagDouble, list[1].Flag())

	list, fn, err = EncodeArgs([]Value{NewString("hello")})
	require.NoError(t, err)
	assert.Nil(t, fn)
	assert.Len(t, list, 1)

	list, fn, err = EncodeArgs(nil)
	require.NoError(t, err)
	assert.Nil(t, fn)
	assert.Len(t, list, 0)

	list, fn, err = EncodeArgs([]Value{NewFunction(ack), NewString("bad")})
	assert.ErrorIs(t, err, ErrInvalidEmitArguments)
	assert.ErrorIs(t, err, ErrUnsupportedArgumentPosition)
	assert.Nil(t, list)
	assert.Nil(t, fn)

	list, _, err = EncodeArgs([]Value{NewString("a"), NewObject(NewTarget())})
	assert.ErrorIs(t, err, ErrInvalidEmitArguments)
	assert.ErrorIs(t, err, ErrUnsupportedValueKind)
	assert.Nil(t, list)
}
