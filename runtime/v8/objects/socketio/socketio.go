package socketio

import (
	"fmt"
	"sync"

	"github.com/go-errors/errors"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/runtime/v8/bridge"
	"github.com/yaoapp/siobridge/socketio"
	"rogchap.com/v8go"
)

// Object Javascript API
//
//	var io = SocketIO.connect("ws://127.0.0.1:3000", { query: { token: "..." } });
//	io.on("connect", function () { io.emit("hello", "world", function (res) {}) });
//	io.disconnect();
type Object struct {
	hub *socketio.Hub
	ids sync.Map // the ids of the connections created by the object
}

// New create a new SocketIO object, the listeners are called on the hub executor
func New(hub *socketio.Hub) *Object {
	return &Object{hub: hub}
}

// ExportObject Export as a SocketIO Object
func (obj *Object) ExportObject(iso *v8go.Isolate) *v8go.ObjectTemplate {
	tmpl := v8go.NewObjectTemplate(iso)
	tmpl.Set("connect", obj.connect(iso))
	return tmpl
}

// Dispose finalize the connections created by the object. The handles are
// not finalized when the isolate collects them, the host calls Release or
// Dispose (v8go has no finalizer callback).
func (obj *Object) Dispose() {
	obj.ids.Range(func(key, value interface{}) bool {
		id := key.(string)
		if client, ok := bridge.GetGoObject(id).(*socketio.Client); ok {
			client.Finalize()
		}
		bridge.ReleaseGoObject(id)
		obj.ids.Delete(id)
		return true
	})
}

// Release finalize one connection, id is the handle's id property
func (obj *Object) Release(id string) {
	if client, ok := bridge.GetGoObject(id).(*socketio.Client); ok {
		client.Finalize()
	}
	bridge.ReleaseGoObject(id)
	obj.ids.Delete(id)
}

// connect(url, { query: {} })
func (obj *Object) connect(iso *v8go.Isolate) *v8go.FunctionTemplate {
	handle := obj.handle(iso)
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 || !args[0].IsString() {
			return bridge.JsException(ctx, "SocketIO.connect: the first parameter should be the url")
		}

		query := map[string]string{}
		if len(args) > 1 && args[1].IsObject() {
			var err error
			query, err = queryOf(args[1])
			if err != nil {
				log.Error("SocketIO.connect: %s", err.Error())
				return bridge.JsException(ctx, err)
			}
		}

		client, err := obj.hub.Connect(args[0].String(), query)
		if err != nil {
			log.Error("SocketIO.connect: %s", err.Error())
			return bridge.JsException(ctx, err)
		}

		this, err := handle.NewInstance(ctx)
		if err != nil {
			client.Finalize()
			return bridge.JsException(ctx, err)
		}

		id := bridge.RegisterGoObjectWithID(client.ID().String(), client)
		obj.ids.Store(id, true)
		this.Set("id", id)
		this.Set("url", client.URL())
		return this.Value
	})
}

// the connection handle: on, emit, disconnect
func (obj *Object) handle(iso *v8go.Isolate) *v8go.ObjectTemplate {
	tmpl := v8go.NewObjectTemplate(iso)
	tmpl.Set("on", obj.on(iso))
	tmpl.Set("emit", obj.emit(iso))
	tmpl.Set("disconnect", obj.disconnect(iso))
	return tmpl
}

// on(name, callback, target?), the target is the handle by default
func (obj *Object) on(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		ctx := info.Context()
		args := info.Args()
		if len(args) < 2 || !args[0].IsString() {
			return bridge.JsException(ctx, "on: missing parameters, on(name, callback[, target])")
		}

		client, err := clientOf(info)
		if err != nil {
			return bridge.JsException(ctx, err)
		}

		target := info.This().Value
		if len(args) > 2 && !args[2].IsNullOrUndefined() {
			target = args[2]
		}

		name := args[0].String()
		err = client.On(name, bridge.Value(ctx, args[1]), bridge.Value(ctx, target))
		if err != nil {
			log.With(log.F{"event": name}).Error("SocketIO on: %s", err.Error())
			return bridge.JsException(ctx, err)
		}
		return v8go.Undefined(iso)
	})
}

// emit(name, ...args, ack?)
func (obj *Object) emit(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		ctx := info.Context()
		args := info.Args()
		if len(args) < 1 || !args[0].IsString() {
			return bridge.JsException(ctx, "emit: the first parameter should be the event name")
		}

		client, err := clientOf(info)
		if err != nil {
			return bridge.JsException(ctx, err)
		}

		err = client.Emit(args[0].String(), bridge.Values(ctx, args[1:])...)
		if err != nil {
			return bridge.JsException(ctx, err)
		}
		return v8go.Undefined(iso)
	})
}

// disconnect()
func (obj *Object) disconnect(iso *v8go.Isolate) *v8go.FunctionTemplate {
	return v8go.NewFunctionTemplate(iso, func(info *v8go.FunctionCallbackInfo) *v8go.Value {
		client, err := clientOf(info)
		if err != nil {
			return bridge.JsException(info.Context(), err)
		}
		client.Disconnect()
		return v8go.Undefined(iso)
	})
}

func clientOf(info *v8go.FunctionCallbackInfo) (*socketio.Client, error) {
	jsID, err := info.This().Get("id")
	if err != nil {
		return nil, err
	}

	if !jsID.IsString() {
		return nil, errors.Errorf("the connection id is required")
	}

	client, ok := bridge.GetGoObject(jsID.String()).(*socketio.Client)
	if !ok {
		return nil, errors.Errorf("the connection %s %s", jsID.String(), socketio.ErrClosed.Error())
	}
	return client, nil
}

func queryOf(options *v8go.Value) (map[string]string, error) {
	obj, err := options.AsObject()
	if err != nil {
		return nil, err
	}

	if !obj.Has("query") {
		return map[string]string{}, nil
	}

	jsQuery, err := obj.Get("query")
	if err != nil {
		return nil, err
	}

	if jsQuery.IsNullOrUndefined() {
		return map[string]string{}, nil
	}

	data, err := jsQuery.MarshalJSON()
	if err != nil {
		return nil, err
	}

	raw := map[string]interface{}{}
	if err := jsoniter.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("the query should be an object: %s", err.Error())
	}

	query := map[string]string{}
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			query[key] = v
		case nil:
			query[key] = ""
		default:
			query[key] = fmt.Sprintf("%v", v)
		}
	}
	return query, nil
}
