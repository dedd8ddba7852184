package socketio

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yaoapp/siobridge/message"
	"github.com/yaoapp/siobridge/sio"
)

// State the connection lifecycle state
type State uint32

const (
	// StateIdle created, connect is not called yet
	StateIdle State = iota
	// StateConnecting waiting for the native open signal
	StateConnecting
	// StateOpen the namespace is connected
	StateOpen
	// StateClosing the close signal is received, the disconnect event is not delivered yet
	StateClosing
	// StateClosed terminal
	StateClosed
	// StateFailed terminal, the connection could not be opened
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateConnecting: "connecting",
	StateOpen:       "open",
	StateClosing:    "closing",
	StateClosed:     "closed",
	StateFailed:     "failed",
}

func (state State) String() string {
	if name, has := stateNames[state]; has {
		return name
	}
	return "unknown"
}

// The synthetic events
const (
	EventConnect      = "connect"
	EventConnectError = "connect_error"
	EventDisconnect   = "disconnect"
	EventError        = "error"
)

// The payloads of the disconnect event
const (
	CloseReasonNormal = "close_reason_normal"
	CloseReasonDrop   = "close_reason_drop"
)

// DefaultAttempts the reconnect budget of Hub.Connect
const DefaultAttempts = 3

// Executor post a task to the host thread, Post must not block
type Executor interface {
	Post(task func())
}

// Native the native socket.io connection
type Native interface {
	SetOpenListener(l func())
	SetFailListener(l func())
	SetCloseListener(l func(reason sio.CloseReason))
	SetReconnectingListener(l func())
	SetReconnectAttempts(attempts int)
	Connect(url string, query map[string]string)
	On(event string, l func(name string, msg *message.Message))
	OnError(l func(msg *message.Message))
	Emit(event string, args message.List, ack func(message.List)) error
	SyncClose()
	ClearConListeners()
	ClearSocketListeners()
}

// Dialer create a native connection
type Dialer func(option sio.Option) Native

// Hub the binding layer: creates the connections and keeps the liveness table
type Hub struct {
	executor Executor
	dialer   Dialer
	live     sync.Map // uuid.UUID -> *Client, the attached wrappers
	clients  sync.Map // uuid.UUID -> *Client, every connection created
}

// Client the script-visible connection handle
type Client struct {
	id       uuid.UUID
	url      string
	query    map[string]string
	attempts int
	hub      *Hub
	native   Native
	delegate *Delegate
	closed   atomic.Bool
}

// Delegate the callback sink of one connection
type Delegate struct {
	id       uuid.UUID
	hub      *Hub
	registry *Registry
	state    atomic.Uint32
	refs     atomic.Int32
	self     atomic.Bool
}

// Registry the event listeners of one connection, host thread only
type Registry struct {
	listeners map[string]Listener
}

// Listener a registered event listener
type Listener struct {
	Callback Value
	Target   Value
}

// Profile a socket.io connection profile (DSL)
type Profile struct {
	ID           string            `json:"-" yaml:"-"` // the key in Profiles
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version,omitempty" yaml:"version,omitempty"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	URL          string            `json:"url" yaml:"url"`
	Query        map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	Path         string            `json:"path,omitempty" yaml:"path,omitempty"`
	Namespace    string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Attempts     *int              `json:"attempts,omitempty" yaml:"attempts,omitempty"`           // reconnect attempts, 3 if not set
	AttemptAfter int               `json:"attempt_after,omitempty" yaml:"attempt_after,omitempty"` // seconds
	Timeout      int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`             // seconds
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}
