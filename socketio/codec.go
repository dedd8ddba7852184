package socketio

import (
	"github.com/go-errors/errors"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/message"
)

// Decode cast a message to a host value. Integer and double are both numbers,
// binary is copied into a new array buffer.
func Decode(msg *message.Message) Value {
	switch msg.Flag() {
	case message.FlagNull:
		return Null()

	case message.FlagBoolean:
		return NewBoolean(msg.GetBool())

	case message.FlagInteger:
		return NewNumber(float64(msg.GetInt()))

	case message.FlagDouble:
		return NewNumber(msg.GetDouble())

	case message.FlagString:
		return NewString(msg.GetString())

	case message.FlagBinary:
		src := msg.GetBinary()
		buf := make([]byte, len(src))
		copy(buf, src)
		return NewArrayBuffer(buf)
	}

	log.Warn("[socketio] Decode: the %s message is not supported, use null", msg.Flag())
	return Null()
}

// DecodeList cast a message list to host values
func DecodeList(list message.List) []Value {
	values := make([]Value, 0, len(list))
	for _, msg := range list {
		values = append(values, Decode(msg))
	}
	return values
}

// Encode cast a host value to a message. Numbers are always doubles.
// Unsupported kinds return a null message and an ErrUnsupportedValueKind error.
func Encode(value Value) (*message.Message, error) {
	switch value.Kind() {
	case KindUndefined, KindNull:
		return message.Null(), nil

	case KindBoolean:
		return message.Boolean(value.Bool()), nil

	case KindNumber:
		return message.Double(value.Number()), nil

	case KindString:
		return message.String(value.Str()), nil

	case KindArrayBuffer, KindBufferView:
		return message.Binary(value.Bytes()), nil
	}

	err := errors.Errorf("%w: %s", ErrUnsupportedValueKind, value.Kind())
	log.Warn("[socketio] Encode: %s, use null", err.Error())
	return message.Null(), err
}

// EncodeArgs cast the emit arguments to a message list. The last argument is
// the ack callback when it is a function.
func EncodeArgs(args []Value) (message.List, Function, error) {

	var ack Function
	if n := len(args); n > 0 && args[n-1].IsFunction() {
		ack = args[n-1].Function()
		args = args[:n-1]
	}

	list := make(message.List, 0, len(args))
	for i, arg := range args {
		if arg.Kind() == KindFunction {
			return nil, nil, errors.Errorf("%w: %w: the argument %d is a function", ErrInvalidEmitArguments, ErrUnsupportedArgumentPosition, i)
		}

		msg, err := Encode(arg)
		if err != nil {
			return nil, nil, errors.Errorf("%w: the argument %d: %w", ErrInvalidEmitArguments, i, err)
		}
		list = append(list, msg)
	}

	return list, ack, nil
}
