package sio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yaoapp/siobridge/message"
)

const (
	// StatusClosed the client is closed (initial state)
	StatusClosed uint32 = iota

	// StatusOpening the client is dialing or waiting for the namespace connect
	StatusOpening

	// StatusOpened the namespace is connected
	StatusOpened

	// StatusClosing the client is closing
	StatusClosing
)

// CloseReason the reason passed to the close listener
type CloseReason int

const (
	// CloseReasonNormal closed by the client or by the server on purpose
	CloseReasonNormal CloseReason = iota

	// CloseReasonDrop the transport was lost and could not be restored
	CloseReasonDrop
)

// Engine.IO packet types
const (
	eioOpen    byte = '0'
	eioClose   byte = '1'
	eioPing    byte = '2'
	eioPong    byte = '3'
	eioMessage byte = '4'
	eioUpgrade byte = '5'
	eioNoop    byte = '6'
)

// PacketType Socket.IO packet types
type PacketType int

const (
	// PacketConnect CONNECT
	PacketConnect PacketType = iota
	// PacketDisconnect DISCONNECT
	PacketDisconnect
	// PacketEvent EVENT
	PacketEvent
	// PacketAck ACK
	PacketAck
	// PacketConnectError CONNECT_ERROR
	PacketConnectError
	// PacketBinaryEvent BINARY_EVENT
	PacketBinaryEvent
	// PacketBinaryAck BINARY_ACK
	PacketBinaryAck
)

// Option the native client option
type Option struct {
	Path         string            `json:"path,omitempty"`          // the engine.io path, default /socket.io/
	Namespace    string            `json:"namespace,omitempty"`     // the socket.io namespace, default /
	Attempts     int               `json:"attempts,omitempty"`      // max times try to reconnect when the connection breaks, 0 disables reconnecting
	AttemptAfter time.Duration     `json:"attempt_after,omitempty"` // the first reconnect delay, default 5s
	AttemptMax   time.Duration     `json:"attempt_max,omitempty"`   // the max reconnect delay, default 25s
	Timeout      time.Duration     `json:"timeout,omitempty"`       // the handshake timeout, default 20s
	Headers      map[string]string `json:"headers,omitempty"`
}

// Client the socket.io client, one engine.io connection
type Client struct {
	option Option
	status atomic.Uint32

	mu        sync.Mutex
	url       string
	query     map[string]string
	conn      *websocket.Conn
	cancel    context.CancelFunc
	done      chan struct{}
	closing   bool
	reconns   int
	handshake handshake
	pending   *Packet // the binary packet waiting for its attachments, reader goroutine only

	wmu sync.Mutex

	listeners listeners
	socket    *Socket
}

type listeners struct {
	open         func()
	fail         func()
	close        func(CloseReason)
	reconnecting func()
	reconnect    func(attempt int, delay time.Duration)
}

// Socket a namespace of the client
type Socket struct {
	client    *Client
	namespace string

	mu        sync.Mutex
	connected bool
	events    map[string]EventListener
	onError   ErrorListener
	acks      map[int]AckListener
	ackID     int
	queue     []*Packet
}

// Event an inbound event
type Event struct {
	name     string
	messages message.List
	ackID    int
	socket   *Socket
}

// EventListener the event listener, called from the I/O goroutine
type EventListener func(event *Event)

// ErrorListener the socket error listener, called from the I/O goroutine
type ErrorListener func(data *message.Message)

// AckListener the ack listener, called from the I/O goroutine
type AckListener func(messages message.List)

// Packet a socket.io packet
type Packet struct {
	Type        PacketType
	Namespace   string
	ID          int // -1 no ack
	Data        interface{}
	Attachments int
	Buffers     [][]byte
}

// handshake the engine.io open packet data
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

type frame struct {
	kind int
	data []byte
}
