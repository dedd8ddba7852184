package socketio

import (
	"github.com/go-errors/errors"
	"github.com/yaoapp/kun/log"
)

// NewRegistry create an event registry
func NewRegistry() *Registry {
	return &Registry{listeners: map[string]Listener{}}
}

// AddEvent set the listener of the event, replaces the previous one.
// The callback is attached to the target so the host keeps it alive.
func (r *Registry) AddEvent(name string, callback Value, target Value) error {
	if !callback.IsFunction() {
		return errors.Errorf("%w: the callback of %s is %s", ErrInvalidListener, name, callback.Kind())
	}

	if !target.IsObject() {
		return errors.Errorf("%w: the target of %s is %s", ErrInvalidListener, name, target.Kind())
	}

	if prev, has := r.listeners[name]; has {
		prev.Target.Object().Detach(attachKey(name))
	}

	target.Object().Attach(attachKey(name), callback)
	r.listeners[name] = Listener{Callback: callback, Target: target}
	return nil
}

// Lookup the listener of the event
func (r *Registry) Lookup(name string) (Listener, bool) {
	l, has := r.listeners[name]
	return l, has
}

// Dispatch call the listener of the event with the value, returns false if
// the event has no listener. The listener errors are logged.
func (r *Registry) Dispatch(name string, value Value) bool {
	l, has := r.listeners[name]
	if !has {
		log.Trace("[socketio] Dispatch: %s has no listener", name)
		return false
	}

	if err := l.Callback.Function().Call(l.Target, value); err != nil {
		log.With(log.F{"event": name}).Error("[socketio] Dispatch: %s", err.Error())
	}
	return true
}

// Len the number of the listeners
func (r *Registry) Len() int {
	return len(r.listeners)
}

// Clear remove all the listeners and detach the callbacks from their targets
func (r *Registry) Clear() {
	for name, l := range r.listeners {
		l.Target.Object().Detach(attachKey(name))
	}
	r.listeners = map[string]Listener{}
}

func attachKey(name string) string {
	return "sio:" + name
}
