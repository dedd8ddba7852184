package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageVariants(t *testing.T) {
	assert.Equal(t, FlagNull, Null().Flag())
	assert.Equal(t, true, Boolean(true).GetBool())
	assert.Equal(t, int64(42), Integer(42).GetInt())
	assert.Equal(t, 42.0, Integer(42).GetDouble())
	assert.Equal(t, 1.5, Double(1.5).GetDouble())
	assert.Equal(t, "hello", String("hello").GetString())

	// wrong accessor returns the zero value
	assert.Equal(t, "", Integer(1).GetString())
	assert.Equal(t, false, String("true").GetBool())
	assert.Nil(t, String("x").GetBinary())

	var nilMsg *Message
	assert.Equal(t, FlagNull, nilMsg.Flag())
}

func TestMessageBinaryCopy(t *testing.T) {
	data := []byte{0x00, 0x01, 0x00, 0xff}
	msg := Binary(data)
	data[0] = 0x7f

	assert.Equal(t, FlagBinary, msg.Flag())
	assert.Equal(t, 4, len(msg.GetBinary()))
	assert.Equal(t, byte(0x00), msg.GetBinary()[0])

	clone := msg.Clone()
	clone.GetBinary()[1] = 0x10
	assert.Equal(t, byte(0x01), msg.GetBinary()[1])
}

func TestMessageContainers(t *testing.T) {
	arr := Array(Integer(1), nil, String("a"))
	assert.Equal(t, 3, len(arr.GetArray()))
	assert.Equal(t, FlagNull, arr.GetArray()[1].Flag())
	assert.Equal(t, `[1,null,"a"]`, arr.String())

	obj := Object(map[string]*Message{"b": Boolean(false), "a": Double(0.5)})
	assert.Equal(t, `{"a":0.5,"b":false}`, obj.String())

	clone := obj.Clone()
	assert.Equal(t, obj.String(), clone.String())
}

func TestList(t *testing.T) {
	list := List{}
	list.Push(String("x"), nil)
	assert.Equal(t, 2, len(list))
	assert.Equal(t, "x", list.At(0).GetString())
	assert.Equal(t, FlagNull, list.At(1).Flag())
	assert.Equal(t, FlagNull, list.At(5).Flag())
	assert.Equal(t, "binary", FlagBinary.String())
}
