// Package nativetest provides a scriptable native connection for tests.
// The signal methods (Open, Fail, Close, Error, Event, Ack) play the role of
// the native I/O goroutine.
package nativetest

import (
	"sync"

	"github.com/yaoapp/siobridge/message"
	"github.com/yaoapp/siobridge/sio"
)

// Native a fake native connection
type Native struct {
	Option sio.Option

	mu           sync.Mutex
	open         func()
	fail         func()
	close        func(sio.CloseReason)
	reconnecting func()
	onError      func(*message.Message)
	events       map[string]func(string, *message.Message)
	attempts     int
	url          string
	query        map[string]string
	connects     int
	running      bool
	syncCloses   int
	emits        []*Emit
}

// Emit an emitted event
type Emit struct {
	Event string
	Args  message.List
	ack   func(message.List)
}

// Factory creates fake natives and remembers them
type Factory struct {
	mu      sync.Mutex
	natives []*Native
}

// New create a fake native
func New(option sio.Option) *Native {
	return &Native{
		Option: option,
		events: map[string]func(string, *message.Message){},
		emits:  []*Emit{},
	}
}

// Dial create a fake native
func (f *Factory) Dial(option sio.Option) *Native {
	n := New(option)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.natives = append(f.natives, n)
	return n
}

// Natives the created natives
func (f *Factory) Natives() []*Native {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Native{}, f.natives...)
}

// Last the last created native
func (f *Factory) Last() *Native {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.natives) == 0 {
		return nil
	}
	return f.natives[len(f.natives)-1]
}

// HasAck reports whether the emit waits for an ack
func (e *Emit) HasAck() bool {
	return e.ack != nil
}

// SetOpenListener implements the native connection
func (n *Native) SetOpenListener(l func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = l
}

// SetFailListener implements the native connection
func (n *Native) SetFailListener(l func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = l
}

// SetCloseListener implements the native connection
func (n *Native) SetCloseListener(l func(sio.CloseReason)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.close = l
}

// SetReconnectingListener implements the native connection
func (n *Native) SetReconnectingListener(l func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reconnecting = l
}

// SetReconnectAttempts implements the native connection
func (n *Native) SetReconnectAttempts(attempts int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.attempts = attempts
}

// Connect implements the native connection
func (n *Native) Connect(url string, query map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.url = url
	n.query = query
	n.connects++
	n.running = true
}

// On implements the native connection
func (n *Native) On(event string, l func(string, *message.Message)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[event] = l
}

// OnError implements the native connection
func (n *Native) OnError(l func(*message.Message)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onError = l
}

// Emit implements the native connection
func (n *Native) Emit(event string, args message.List, ack func(message.List)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emits = append(n.emits, &Emit{Event: event, Args: args.Clone(), ack: ack})
	return nil
}

// SyncClose implements the native connection, a running connection fires close(normal)
func (n *Native) SyncClose() {
	n.mu.Lock()
	n.syncCloses++
	running := n.running
	n.running = false
	l := n.close
	n.mu.Unlock()

	if running && l != nil {
		l(sio.CloseReasonNormal)
	}
}

// ClearConListeners implements the native connection
func (n *Native) ClearConListeners() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.open = nil
	n.fail = nil
	n.close = nil
	n.reconnecting = nil
}

// ClearSocketListeners implements the native connection
func (n *Native) ClearSocketListeners() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = map[string]func(string, *message.Message){}
	n.onError = nil
}

// Open fire the open signal
func (n *Native) Open() {
	n.mu.Lock()
	l := n.open
	n.mu.Unlock()
	if l != nil {
		l()
	}
}

// Fail fire the fail signal
func (n *Native) Fail() {
	n.mu.Lock()
	n.running = false
	l := n.fail
	n.mu.Unlock()
	if l != nil {
		l()
	}
}

// Close fire the close signal
func (n *Native) Close(reason sio.CloseReason) {
	n.mu.Lock()
	n.running = false
	l := n.close
	n.mu.Unlock()
	if l != nil {
		l(reason)
	}
}

// Reconnecting fire the reconnecting signal
func (n *Native) Reconnecting() {
	n.mu.Lock()
	l := n.reconnecting
	n.mu.Unlock()
	if l != nil {
		l()
	}
}

// Error fire the error signal
func (n *Native) Error(msg *message.Message) {
	n.mu.Lock()
	l := n.onError
	n.mu.Unlock()
	if l != nil {
		l(msg)
	}
}

// Event fire an event, returns false when nothing listens to it
func (n *Native) Event(name string, msg *message.Message) bool {
	n.mu.Lock()
	l, has := n.events[name]
	n.mu.Unlock()
	if !has || l == nil {
		return false
	}
	l(name, msg)
	return true
}

// Ack answer the i-th emit, returns false when it does not wait for an ack
func (n *Native) Ack(i int, res message.List) bool {
	n.mu.Lock()
	if i < 0 || i >= len(n.emits) || n.emits[i].ack == nil {
		n.mu.Unlock()
		return false
	}
	ack := n.emits[i].ack
	n.emits[i].ack = nil
	n.mu.Unlock()
	ack(res)
	return true
}

// Emits the emitted events
func (n *Native) Emits() []*Emit {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Emit{}, n.emits...)
}

// URL the connected url
func (n *Native) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.url
}

// Query the connected query
func (n *Native) Query() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.query
}

// Connects the number of the Connect calls
func (n *Native) Connects() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connects
}

// Attempts the reconnect budget
func (n *Native) Attempts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.attempts
}

// SyncCloses the number of the SyncClose calls
func (n *Native) SyncCloses() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.syncCloses
}

// Listening reports whether the event has a native listener
func (n *Native) Listening(event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, has := n.events[event]
	return has
}

// HasConListeners reports whether any connection listener is set
func (n *Native) HasConListeners() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.open != nil || n.fail != nil || n.close != nil || n.reconnecting != nil
}
