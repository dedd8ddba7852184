package socketio

import (
	"github.com/google/uuid"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/message"
	"github.com/yaoapp/siobridge/sio"
)

func newDelegate(id uuid.UUID, hub *Hub) *Delegate {
	d := &Delegate{id: id, hub: hub, registry: NewRegistry()}
	d.refs.Store(1)
	return d
}

// ID the connection id
func (d *Delegate) ID() uuid.UUID {
	return d.id
}

// State the lifecycle state
func (d *Delegate) State() State {
	return State(d.state.Load())
}

// Registry the event listeners, host thread only
func (d *Delegate) Registry() *Registry {
	return d.registry
}

// Refs the number of the references
func (d *Delegate) Refs() int {
	return int(d.refs.Load())
}

// Retain add a reference
func (d *Delegate) Retain() {
	if d.refs.Add(1) <= 1 {
		log.With(log.F{"id": d.id.String()}).Error("[socketio] Retain: the delegate was released")
	}
}

// Release remove a reference, the registry is cleared on the host thread
// when the last one is released
func (d *Delegate) Release() {
	refs := d.refs.Add(-1)
	if refs > 0 {
		return
	}

	if refs < 0 {
		log.With(log.F{"id": d.id.String()}).Error("[socketio] Release: the delegate was released")
		return
	}

	log.With(log.F{"id": d.id.String()}).Trace("[socketio] the delegate is destroyed")
	d.hub.executor.Post(d.registry.Clear)
}

// connecting Idle -> Connecting, the delegate holds a reference on itself
// until the native connection closes or fails
func (d *Delegate) connecting() {
	d.state.Store(uint32(StateConnecting))
	if d.self.CompareAndSwap(false, true) {
		d.Retain()
	}
}

func (d *Delegate) releaseSelf() {
	if d.self.CompareAndSwap(true, false) {
		d.Release()
	}
}

// the native listeners, called from the I/O goroutine

func (d *Delegate) onOpen() {
	if !d.state.CompareAndSwap(uint32(StateConnecting), uint32(StateOpen)) &&
		d.State() != StateOpen {
		log.With(log.F{"id": d.id.String(), "state": d.State()}).Trace("[socketio] ignore the open signal")
		return
	}

	d.post(func() {
		d.registry.Dispatch(EventConnect, Null())
	})
}

func (d *Delegate) onFail() {
	switch d.State() {
	case StateFailed, StateClosed:
		return
	}

	d.state.Store(uint32(StateFailed))
	log.With(log.F{"id": d.id.String()}).Trace("[socketio] %s", ErrConnectionFailed.Error())
	d.post(func() {
		d.registry.Dispatch(EventConnectError, Null())
	})
	d.releaseSelf()
}

func (d *Delegate) onClose(reason sio.CloseReason) {
	switch d.State() {
	case StateFailed, StateClosed:
		return
	}

	d.state.Store(uint32(StateClosing))
	payload := CloseReasonNormal
	if reason != sio.CloseReasonNormal {
		payload = CloseReasonDrop
		log.With(log.F{"id": d.id.String()}).Trace("[socketio] %s", ErrConnectionDropped.Error())
	}

	d.post(func() {
		d.registry.Dispatch(EventDisconnect, NewString(payload))
		d.state.Store(uint32(StateClosed))
		d.hub.detach(d.id)
	})
	d.releaseSelf()
}

func (d *Delegate) onError(msg *message.Message) {
	if d.State() == StateFailed {
		return
	}

	msg = msg.Clone()
	d.post(func() {
		d.registry.Dispatch(EventError, Decode(msg))
		d.hub.detach(d.id)
	})
}

func (d *Delegate) onEvent(name string, msg *message.Message) {
	if d.State() == StateFailed {
		return
	}

	msg = msg.Clone()
	d.post(func() {
		d.registry.Dispatch(name, Decode(msg))
	})
}

func (d *Delegate) onReconnecting() {
	log.With(log.F{"id": d.id.String()}).Trace("[socketio] reconnecting")
}

// post run the task on the host thread, the task is dropped when the
// connection was detached before it runs
func (d *Delegate) post(task func()) {
	d.Retain()
	d.hub.executor.Post(func() {
		defer d.Release()
		if !d.hub.alive(d.id) {
			log.With(log.F{"id": d.id.String()}).Trace("[socketio] the connection was detached, drop the task")
			return
		}
		task()
	})
}
