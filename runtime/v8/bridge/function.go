package bridge

import (
	"github.com/go-errors/errors"
	"github.com/yaoapp/siobridge/socketio"
	"rogchap.com/v8go"
)

// attachedKey the property of the object holding the attached children
const attachedKey = "__sio_attached"

// Function a JavaScript function as a host function
type Function struct {
	ctx   *v8go.Context
	value *v8go.Value
	fn    *v8go.Function
}

// Object a JavaScript object as a host object
type Object struct {
	ctx    *v8go.Context
	object *v8go.Object
}

// NewFunction wrap a JavaScript function
func NewFunction(ctx *v8go.Context, value *v8go.Value) (*Function, error) {
	fn, err := value.AsFunction()
	if err != nil {
		return nil, err
	}
	return &Function{ctx: ctx, value: value, fn: fn}, nil
}

// NewObject wrap a JavaScript object
func NewObject(ctx *v8go.Context, value *v8go.Value) (*Object, error) {
	obj, err := value.AsObject()
	if err != nil {
		return nil, err
	}
	return &Object{ctx: ctx, object: obj}, nil
}

// Call the function, must be called on the isolate goroutine
func (f *Function) Call(this socketio.Value, args ...socketio.Value) error {
	if f.ctx == nil {
		return errors.Errorf("invalid context")
	}

	recv, err := JsValue(f.ctx, this)
	if err != nil {
		recv = f.ctx.Global().Value
	}

	jsArgs, err := JsValues(f.ctx, args)
	if err != nil {
		return err
	}

	_, err = f.fn.Call(recv, Valuers(jsArgs)...)
	return err
}

// Attach keep the child in a hidden holder of the object
func (o *Object) Attach(key string, child socketio.Value) {
	jsChild, err := JsValue(o.ctx, child)
	if err != nil {
		return
	}

	holder, err := o.holder(true)
	if err != nil {
		return
	}
	holder.Set(key, jsChild)
}

// Detach remove the child from the holder
func (o *Object) Detach(key string) {
	holder, err := o.holder(false)
	if err != nil || holder == nil {
		return
	}
	holder.Delete(key)
}

// Attached reports whether a child is attached with the key
func (o *Object) Attached(key string) bool {
	holder, err := o.holder(false)
	if err != nil || holder == nil {
		return false
	}
	return holder.Has(key)
}

func (o *Object) holder(create bool) (*v8go.Object, error) {
	if o.object.Has(attachedKey) {
		value, err := o.object.Get(attachedKey)
		if err != nil {
			return nil, err
		}
		return value.AsObject()
	}

	if !create {
		return nil, nil
	}

	holder, err := v8go.NewObjectTemplate(o.ctx.Isolate()).NewInstance(o.ctx)
	if err != nil {
		return nil, err
	}

	if err := o.object.Set(attachedKey, holder); err != nil {
		return nil, err
	}
	return holder, nil
}
