package message

import (
	"fmt"
	"sort"
	"strings"
)

// Flag the message variant tag
type Flag uint8

const (
	// FlagNull null message
	FlagNull Flag = iota

	// FlagBoolean boolean message
	FlagBoolean

	// FlagInteger integer message
	FlagInteger

	// FlagDouble double-precision message
	FlagDouble

	// FlagString string message
	FlagString

	// FlagBinary binary message, raw bytes with explicit length
	FlagBinary

	// FlagArray array message (JSON array received from the peer)
	FlagArray

	// FlagObject object message (JSON object received from the peer)
	FlagObject
)

// Message a tagged dynamic value. Exactly one variant is active.
// A Message is immutable once created.
type Message struct {
	flag    Flag
	boolean bool
	integer int64
	double  float64
	str     string
	binary  []byte
	array   []*Message
	object  map[string]*Message
}

// List an ordered sequence of messages, used for multi-argument payloads
type List []*Message

// Null create a null message
func Null() *Message {
	return &Message{flag: FlagNull}
}

// Boolean create a boolean message
func Boolean(v bool) *Message {
	return &Message{flag: FlagBoolean, boolean: v}
}

// Integer create an integer message
func Integer(v int64) *Message {
	return &Message{flag: FlagInteger, integer: v}
}

// Double create a double message
func Double(v float64) *Message {
	return &Message{flag: FlagDouble, double: v}
}

// String create a string message
func String(v string) *Message {
	return &Message{flag: FlagString, str: v}
}

// Binary create a binary message holding a copy of data
func Binary(data []byte) *Message {
	bin := make([]byte, len(data))
	copy(bin, data)
	return &Message{flag: FlagBinary, binary: bin}
}

// Array create an array message
func Array(items ...*Message) *Message {
	arr := make([]*Message, 0, len(items))
	for _, item := range items {
		if item == nil {
			item = Null()
		}
		arr = append(arr, item)
	}
	return &Message{flag: FlagArray, array: arr}
}

// Object create an object message
func Object(fields map[string]*Message) *Message {
	obj := make(map[string]*Message, len(fields))
	for key, item := range fields {
		if item == nil {
			item = Null()
		}
		obj[key] = item
	}
	return &Message{flag: FlagObject, object: obj}
}

// Flag the active variant
func (m *Message) Flag() Flag {
	if m == nil {
		return FlagNull
	}
	return m.flag
}

// GetBool the boolean value, false for other variants
func (m *Message) GetBool() bool {
	return m.Flag() == FlagBoolean && m.boolean
}

// GetInt the integer value. double messages are truncated.
func (m *Message) GetInt() int64 {
	switch m.Flag() {
	case FlagInteger:
		return m.integer
	case FlagDouble:
		return int64(m.double)
	}
	return 0
}

// GetDouble the double value. integer messages are converted.
func (m *Message) GetDouble() float64 {
	switch m.Flag() {
	case FlagDouble:
		return m.double
	case FlagInteger:
		return float64(m.integer)
	}
	return 0
}

// GetString the string value, "" for other variants
func (m *Message) GetString() string {
	if m.Flag() != FlagString {
		return ""
	}
	return m.str
}

// GetBinary the binary bytes. The slice is shared with the message, do not modify it.
func (m *Message) GetBinary() []byte {
	if m.Flag() != FlagBinary {
		return nil
	}
	return m.binary
}

// GetArray the array items
func (m *Message) GetArray() []*Message {
	if m.Flag() != FlagArray {
		return nil
	}
	return m.array
}

// GetMap the object fields
func (m *Message) GetMap() map[string]*Message {
	if m.Flag() != FlagObject {
		return nil
	}
	return m.object
}

// Clone a deep copy of the message
func (m *Message) Clone() *Message {
	if m == nil {
		return Null()
	}

	switch m.flag {
	case FlagBinary:
		return Binary(m.binary)

	case FlagArray:
		arr := make([]*Message, 0, len(m.array))
		for _, item := range m.array {
			arr = append(arr, item.Clone())
		}
		return &Message{flag: FlagArray, array: arr}

	case FlagObject:
		obj := make(map[string]*Message, len(m.object))
		for key, item := range m.object {
			obj[key] = item.Clone()
		}
		return &Message{flag: FlagObject, object: obj}
	}

	copied := *m
	return &copied
}

// String a readable form, for logs
func (m *Message) String() string {
	switch m.Flag() {
	case FlagNull:
		return "null"
	case FlagBoolean:
		return fmt.Sprintf("%v", m.boolean)
	case FlagInteger:
		return fmt.Sprintf("%d", m.integer)
	case FlagDouble:
		return fmt.Sprintf("%v", m.double)
	case FlagString:
		return fmt.Sprintf("%q", m.str)
	case FlagBinary:
		return fmt.Sprintf("<binary %d>", len(m.binary))
	case FlagArray:
		items := make([]string, 0, len(m.array))
		for _, item := range m.array {
			items = append(items, item.String())
		}
		return "[" + strings.Join(items, ",") + "]"
	case FlagObject:
		keys := make([]string, 0, len(m.object))
		for key := range m.object {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		items := make([]string, 0, len(keys))
		for _, key := range keys {
			items = append(items, fmt.Sprintf("%q:%s", key, m.object[key].String()))
		}
		return "{" + strings.Join(items, ",") + "}"
	}
	return "unknown"
}

// Push append messages to the list
func (list *List) Push(items ...*Message) {
	for _, item := range items {
		if item == nil {
			item = Null()
		}
		*list = append(*list, item)
	}
}

// At the i-th message, null when out of range
func (list List) At(i int) *Message {
	if i < 0 || i >= len(list) {
		return Null()
	}
	return list[i]
}

// Clone a deep copy of the list
func (list List) Clone() List {
	res := make(List, 0, len(list))
	for _, item := range list {
		res = append(res, item.Clone())
	}
	return res
}

// String flag names, for logs
func (f Flag) String() string {
	switch f {
	case FlagNull:
		return "null"
	case FlagBoolean:
		return "boolean"
	case FlagInteger:
		return "integer"
	case FlagDouble:
		return "double"
	case FlagString:
		return "string"
	case FlagBinary:
		return "binary"
	case FlagArray:
		return "array"
	case FlagObject:
		return "object"
	}
	return fmt.Sprintf("unknown(%d)", uint8(f))
}
