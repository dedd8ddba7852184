package socketio

import (
	"bytes"
	"fmt"
	"strconv"
	"sync"
)

// Kind the kind of a host value
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindString
	KindArrayBuffer
	KindBufferView
	KindFunction
	KindObject
)

var kindNames = map[Kind]string{
	KindUndefined:   "undefined",
	KindNull:        "null",
	KindBoolean:     "boolean",
	KindNumber:      "number",
	KindString:      "string",
	KindArrayBuffer: "arraybuffer",
	KindBufferView:  "bufferview",
	KindFunction:    "function",
	KindObject:      "object",
}

func (kind Kind) String() string {
	if name, has := kindNames[kind]; has {
		return name
	}
	return "unknown"
}

// Function a host function
type Function interface {
	Call(this Value, args ...Value) error
}

// Object a host object. Attach keeps the child alive as long as the object
// is alive, Detach removes the relation.
type Object interface {
	Attach(key string, child Value)
	Detach(key string)
}

// FunctionFunc a Go function as a host function
type FunctionFunc func(this Value, args ...Value) error

// Call the function
func (fn FunctionFunc) Call(this Value, args ...Value) error {
	return fn(this, args...)
}

// Value a host dynamic value
type Value struct {
	kind    Kind
	boolean bool
	number  float64
	str     string
	buf     []byte
	fn      Function
	obj     Object
}

// Undefined the undefined value
func Undefined() Value { return Value{kind: KindUndefined} }

// Null the null value
func Null() Value { return Value{kind: KindNull} }

// NewBoolean a boolean value
func NewBoolean(v bool) Value { return Value{kind: KindBoolean, boolean: v} }

// NewNumber a number value
func NewNumber(v float64) Value { return Value{kind: KindNumber, number: v} }

// NewString a string value
func NewString(v string) Value { return Value{kind: KindString, str: v} }

// NewArrayBuffer an array buffer value, the value holds the given slice
func NewArrayBuffer(buf []byte) Value {
	if buf == nil {
		buf = []byte{}
	}
	return Value{kind: KindArrayBuffer, buf: buf}
}

// NewBufferView a view (typed array, DataView) into an array buffer
func NewBufferView(buf []byte) Value {
	if buf == nil {
		buf = []byte{}
	}
	return Value{kind: KindBufferView, buf: buf}
}

// NewFunction a function value, nil is undefined
func NewFunction(fn Function) Value {
	if fn == nil {
		return Undefined()
	}
	return Value{kind: KindFunction, fn: fn}
}

// NewObject an object value, nil is undefined
func NewObject(obj Object) Value {
	if obj == nil {
		return Undefined()
	}
	return Value{kind: KindObject, obj: obj}
}

// Kind the value kind
func (v Value) Kind() Kind { return v.kind }

// IsNullish null or undefined
func (v Value) IsNullish() bool { return v.kind == KindUndefined || v.kind == KindNull }

// IsFunction reports whether the value is invocable
func (v Value) IsFunction() bool { return v.kind == KindFunction && v.fn != nil }

// IsObject reports whether the value can be an invocation target
func (v Value) IsObject() bool { return v.kind == KindObject && v.obj != nil }

// Bool the boolean
func (v Value) Bool() bool { return v.boolean }

// Number the number
func (v Value) Number() float64 { return v.number }

// Str the string
func (v Value) Str() string { return v.str }

// Bytes the bytes of an array buffer or a buffer view
func (v Value) Bytes() []byte { return v.buf }

// Function the function, nil if the value is not a function
func (v Value) Function() Function { return v.fn }

// Object the object, nil if the value is not an object
func (v Value) Object() Object { return v.obj }

// String for logs
func (v Value) String() string {
	switch v.kind {
	case KindBoolean:
		return strconv.FormatBool(v.boolean)
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindArrayBuffer, KindBufferView:
		return fmt.Sprintf("<%s %d bytes>", v.kind, len(v.buf))
	case KindFunction, KindObject:
		return fmt.Sprintf("<%s>", v.kind)
	}
	return v.kind.String()
}

// Equal reports whether two data values are equal. Functions and objects
// are never equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBoolean:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number
	case KindString:
		return a.str == b.str
	case KindArrayBuffer, KindBufferView:
		return bytes.Equal(a.buf, b.buf)
	}
	return false
}

// Target an object living on the Go side, used when the host has no object
// of its own (the Go API, the command line tool)
type Target struct {
	mu       sync.Mutex
	attached map[string]Value
}

// NewTarget create a target
func NewTarget() *Target {
	return &Target{attached: map[string]Value{}}
}

// Attach keep the child
func (t *Target) Attach(key string, child Value) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attached[key] = child
}

// Detach release the child
func (t *Target) Detach(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.attached, key)
}

// Attached the child attached with the key
func (t *Target) Attached(key string) (Value, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, has := t.attached[key]
	return v, has
}

// Len the number of the attached children
func (t *Target) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attached)
}
