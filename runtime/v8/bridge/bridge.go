package bridge

import (
	"fmt"

	"github.com/go-errors/errors"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/socketio"
	"rogchap.com/v8go"
)

// Valuers cast the values to v8go valuers
func Valuers(values []*v8go.Value) []v8go.Valuer {
	res := make([]v8go.Valuer, 0, len(values))
	for _, value := range values {
		res = append(res, value)
	}
	return res
}

// JsValues cast host values to JavaScript values
func JsValues(ctx *v8go.Context, values []socketio.Value) ([]*v8go.Value, error) {
	res := make([]*v8go.Value, 0, len(values))
	for _, value := range values {
		jsValue, err := JsValue(ctx, value)
		if err != nil {
			return nil, err
		}
		res = append(res, jsValue)
	}
	return res, nil
}

// JsValue cast a host value to a JavaScript value
//
// *  ---------------------------------------------------
// *  | Host                  | Javascript              |
// *  ---------------------------------------------------
// *  | undefined             | undefined               |
// *  | null                  | null                    |
// *  | boolean               | boolean                 |
// *  | number                | number                  |
// *  | string                | string                  |
// *  | arraybuffer           | ArrayBuffer             |
// *  | bufferview            | Uint8Array              |
// *  | function              | function                |
// *  | object                | object                  |
// *  ---------------------------------------------------
func JsValue(ctx *v8go.Context, value socketio.Value) (*v8go.Value, error) {
	iso := ctx.Isolate()
	switch value.Kind() {
	case socketio.KindUndefined:
		return v8go.Undefined(iso), nil

	case socketio.KindNull:
		return v8go.Null(iso), nil

	case socketio.KindBoolean:
		return v8go.NewValue(iso, value.Bool())

	case socketio.KindNumber:
		return v8go.NewValue(iso, value.Number())

	case socketio.KindString:
		return v8go.NewValue(iso, value.Str())

	case socketio.KindArrayBuffer:
		arr, err := jsNewBytes(ctx, value.Bytes())
		if err != nil {
			return nil, err
		}
		return arr.Get("buffer")

	case socketio.KindBufferView:
		arr, err := jsNewBytes(ctx, value.Bytes())
		if err != nil {
			return nil, err
		}
		return arr.Value, nil

	case socketio.KindFunction:
		if fn, ok := value.Function().(*Function); ok {
			return fn.value, nil
		}

	case socketio.KindObject:
		if obj, ok := value.Object().(*Object); ok {
			return obj.object.Value, nil
		}
	}

	return nil, errors.Errorf("the %s value does not belong to the context", value.Kind())
}

// Value cast a JavaScript value to a host value
//
// *  ---------------------------------------------------
// *  | JavaScript            | Host                    |
// *  ---------------------------------------------------
// *  | undefined             | undefined               |
// *  | null                  | null                    |
// *  | boolean               | boolean                 |
// *  | number                | number                  |
// *  | string                | string                  |
// *  | ArrayBuffer           | arraybuffer (copy)      |
// *  | TypedArray, DataView  | bufferview (copy)       |
// *  | function              | function                |
// *  | object, array         | object                  |
// *  ---------------------------------------------------
func Value(ctx *v8go.Context, value *v8go.Value) socketio.Value {

	switch {
	case value == nil, value.IsUndefined():
		return socketio.Undefined()

	case value.IsNull():
		return socketio.Null()

	case value.IsBoolean():
		return socketio.NewBoolean(value.Boolean())

	case value.IsNumber():
		return socketio.NewNumber(value.Number())

	case value.IsString():
		return socketio.NewString(value.String())

	case value.IsArrayBuffer():
		buf, err := goBytes(ctx, value, false)
		if err != nil {
			log.Error("[bridge] ArrayBuffer: %s", err.Error())
			return socketio.Undefined()
		}
		return socketio.NewArrayBuffer(buf)

	case value.IsArrayBufferView():
		buf, err := goBytes(ctx, value, true)
		if err != nil {
			log.Error("[bridge] ArrayBufferView: %s", err.Error())
			return socketio.Undefined()
		}
		return socketio.NewBufferView(buf)

	case value.IsFunction():
		fn, err := NewFunction(ctx, value)
		if err != nil {
			log.Error("[bridge] Function: %s", err.Error())
			return socketio.Undefined()
		}
		return socketio.NewFunction(fn)

	case value.IsObject():
		obj, err := NewObject(ctx, value)
		if err != nil {
			log.Error("[bridge] Object: %s", err.Error())
			return socketio.Undefined()
		}
		return socketio.NewObject(obj)
	}

	log.Warn("[bridge] the JavaScript value %s is not supported, use undefined", value.String())
	return socketio.Undefined()
}

// Values cast JavaScript values to host values
func Values(ctx *v8go.Context, values []*v8go.Value) []socketio.Value {
	res := make([]socketio.Value, 0, len(values))
	for _, value := range values {
		res = append(res, Value(ctx, value))
	}
	return res
}

// JsException throw a JavaScript Error
func JsException(ctx *v8go.Context, message interface{}) *v8go.Value {
	iso := ctx.Isolate()
	text := fmt.Sprintf("%v", message)
	if err, ok := message.(error); ok {
		text = err.Error()
	}

	msg, err := v8go.NewValue(iso, text)
	if err != nil {
		log.Error("[bridge] JsException: %s", err.Error())
		return v8go.Undefined(iso)
	}

	ctor, err := constructor(ctx, "Error")
	if err != nil {
		return iso.ThrowException(msg)
	}

	exception, err := ctor.NewInstance(msg)
	if err != nil {
		return iso.ThrowException(msg)
	}
	return iso.ThrowException(exception.Value)
}

func constructor(ctx *v8go.Context, name string) (*v8go.Function, error) {
	value, err := ctx.Global().Get(name)
	if err != nil {
		return nil, err
	}
	return value.AsFunction()
}

// jsNewBytes a new Uint8Array holding a copy of the bytes
func jsNewBytes(ctx *v8go.Context, data []byte) (*v8go.Object, error) {
	ctor, err := constructor(ctx, "Uint8Array")
	if err != nil {
		return nil, err
	}

	length, err := v8go.NewValue(ctx.Isolate(), uint32(len(data)))
	if err != nil {
		return nil, err
	}

	arr, err := ctor.NewInstance(length)
	if err != nil {
		return nil, err
	}

	for i, b := range data {
		if err := arr.SetIdx(uint32(i), uint32(b)); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

// goBytes copy the bytes of an ArrayBuffer or a view into one
func goBytes(ctx *v8go.Context, value *v8go.Value, view bool) ([]byte, error) {
	ctor, err := constructor(ctx, "Uint8Array")
	if err != nil {
		return nil, err
	}

	args := []v8go.Valuer{value}
	if view {
		obj, err := value.AsObject()
		if err != nil {
			return nil, err
		}

		buffer, err := obj.Get("buffer")
		if err != nil {
			return nil, err
		}

		offset, err := obj.Get("byteOffset")
		if err != nil {
			return nil, err
		}

		length, err := obj.Get("byteLength")
		if err != nil {
			return nil, err
		}
		args = []v8go.Valuer{buffer, offset, length}
	}

	arr, err := ctor.NewInstance(args...)
	if err != nil {
		return nil, err
	}

	length, err := arr.Get("length")
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, length.Uint32())
	for i := uint32(0); i < length.Uint32(); i++ {
		b, err := arr.GetIdx(i)
		if err != nil {
			return nil, err
		}
		data = append(data, byte(b.Uint32()))
	}
	return data, nil
}
