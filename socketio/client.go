package socketio

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/message"
)

// ID the connection id
func (client *Client) ID() uuid.UUID {
	return client.id
}

// URL the connection url
func (client *Client) URL() string {
	return client.url
}

// Query a copy of the query parameters
func (client *Client) Query() map[string]string {
	query := make(map[string]string, len(client.query))
	for key, value := range client.query {
		query[key] = value
	}
	return query
}

// Attempts the reconnect budget
func (client *Client) Attempts() int {
	return client.attempts
}

// State the lifecycle state
func (client *Client) State() State {
	return client.delegate.State()
}

// Delegate the callback sink of the connection
func (client *Client) Delegate() *Delegate {
	return client.delegate
}

// On set the listener of the event, replaces the previous one
func (client *Client) On(name string, callback Value, target Value) error {
	if client.closed.Load() {
		return ErrClosed
	}

	if err := client.delegate.registry.AddEvent(name, callback, target); err != nil {
		return err
	}

	client.native.On(name, client.delegate.onEvent)
	return nil
}

// Emit send the event. When the last argument is a function it is called
// once on the host thread with the server acknowledgement.
func (client *Client) Emit(name string, args ...Value) error {
	if client.closed.Load() {
		return ErrClosed
	}

	list, ack, err := EncodeArgs(args)
	if err != nil {
		log.With(log.F{"id": client.id.String(), "event": name}).Error("[socketio] Emit: %s", err.Error())
		return err
	}

	if ack == nil {
		return client.native.Emit(name, list, nil)
	}

	var called atomic.Bool
	delegate := client.delegate
	return client.native.Emit(name, list, func(res message.List) {
		if !called.CompareAndSwap(false, true) {
			return
		}
		res = res.Clone()
		delegate.post(func() {
			if err := ack.Call(Undefined(), DecodeList(res)...); err != nil {
				log.With(log.F{"event": name}).Error("[socketio] Emit ack: %s", err.Error())
			}
		})
	})
}

// Disconnect close the connection synchronously
func (client *Client) Disconnect() {
	if client.closed.Load() {
		return
	}
	client.native.SyncClose()
}

// Finalize release the connection when the script wrapper is collected.
// The native connection is closed, the native listeners are cleared, then
// the handle's delegate reference is released.
func (client *Client) Finalize() {
	if !client.closed.CompareAndSwap(false, true) {
		return
	}

	client.hub.detach(client.id)
	client.native.SyncClose()
	client.native.ClearConListeners()
	client.native.ClearSocketListeners()
	client.hub.clients.Delete(client.id)
	client.delegate.Release()
	log.With(log.F{"id": client.id.String(), "url": client.url}).Trace("[socketio] finalized")
}
