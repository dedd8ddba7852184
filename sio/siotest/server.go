// Package siotest provides an in-process socket.io server for tests.
package siotest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/sio"
)

// Handler handle an event, the returned values are sent back as the ack
type Handler func(conn *Conn, args []interface{}) []interface{}

// Server a minimal socket.io v5 server (websocket transport only)
type Server struct {
	PingInterval int // ms
	PingTimeout  int // ms

	srv      *httptest.Server
	up       *websocket.Upgrader
	mu       sync.Mutex
	handlers map[string]Handler
	conns    map[string]*Conn
	received []Record
	joined   chan *Conn
}

// Conn a connected client
type Conn struct {
	SID   string
	Query url.Values

	server  *Server
	ws      *websocket.Conn
	wmu     sync.Mutex
	nsp     string
	pending *sio.Packet
}

// Record a received event or ack
type Record struct {
	SID  string
	Name string // empty for acks
	Ack  int    // the ack id of an ack record, -1 for events
	Args []interface{}
}

// New start a test server
func New() *Server {
	server := &Server{
		PingInterval: 25000,
		PingTimeout:  20000,
		handlers:     map[string]Handler{},
		conns:        map[string]*Conn{},
		received:     []Record{},
		joined:       make(chan *Conn, 16),
	}

	server.up = &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.GET("/socket.io/", server.serve)
	server.srv = httptest.NewServer(router)
	return server
}

// URL the server url, http://127.0.0.1:port
func (server *Server) URL() string {
	return server.srv.URL
}

// Close stop the server and close all the connections
func (server *Server) Close() {
	server.DropAll()
	server.srv.Close()
}

// On set the event handler
func (server *Server) On(name string, handler Handler) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.handlers[name] = handler
}

// Received the received events
func (server *Server) Received() []Record {
	server.mu.Lock()
	defer server.mu.Unlock()
	res := make([]Record, len(server.received))
	copy(res, server.received)
	return res
}

// WaitConn wait for the next connected client
func (server *Server) WaitConn(timeout time.Duration) (*Conn, error) {
	select {
	case conn := <-server.joined:
		return conn, nil
	case <-time.After(timeout):
		return nil, errors.Errorf("siotest: no connection after %v", timeout)
	}
}

// Conns the connected clients
func (server *Server) Conns() []*Conn {
	server.mu.Lock()
	defer server.mu.Unlock()
	res := []*Conn{}
	for _, conn := range server.conns {
		res = append(res, conn)
	}
	return res
}

// Emit send an event to all the connected clients
func (server *Server) Emit(name string, args ...interface{}) {
	for _, conn := range server.Conns() {
		if err := conn.Emit(name, args...); err != nil {
			log.Error("[siotest] emit %s: %s", name, err.Error())
		}
	}
}

// DisconnectAll disconnect the namespace of all the clients on purpose
func (server *Server) DisconnectAll() {
	for _, conn := range server.Conns() {
		conn.send(sio.NewPacket(sio.PacketDisconnect, conn.nsp, nil))
		conn.ws.Close()
	}
}

// DropAll close all the transports without a close handshake
func (server *Server) DropAll() {
	for _, conn := range server.Conns() {
		conn.ws.Close()
	}
}

func (server *Server) serve(c *gin.Context) {
	query := c.Request.URL.Query()
	if query.Get("EIO") != "4" || query.Get("transport") != "websocket" {
		c.String(http.StatusBadRequest, "unsupported protocol")
		return
	}

	if query.Get("reject") != "" {
		c.String(http.StatusForbidden, "rejected")
		return
	}

	ws, err := server.up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("[siotest] upgrade: %s", err.Error())
		return
	}

	conn := &Conn{SID: uuid.NewString(), Query: query, server: server, ws: ws, nsp: "/"}
	open, _ := jsoniter.Marshal(map[string]interface{}{
		"sid":          conn.SID,
		"upgrades":     []string{},
		"pingInterval": server.PingInterval,
		"pingTimeout":  server.PingTimeout,
		"maxPayload":   1000000,
	})
	conn.write(websocket.TextMessage, append([]byte{'0'}, open...))

	done := make(chan struct{})
	defer close(done)
	go conn.ping(done)

	defer func() {
		server.mu.Lock()
		delete(server.conns, conn.SID)
		server.mu.Unlock()
		ws.Close()
	}()

	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			return
		}

		if kind == websocket.BinaryMessage {
			conn.onBinary(data)
			continue
		}

		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case '1':
			return
		case '3':
		case '4':
			if !conn.onText(string(data[1:])) {
				return
			}
		}
	}
}

// Emit send an event to the client
func (conn *Conn) Emit(name string, args ...interface{}) error {
	data := append([]interface{}{name}, args...)
	return conn.send(sio.NewPacket(sio.PacketEvent, conn.nsp, data))
}

// EmitWithAck send an event waiting for an ack, the ack is recorded in Received
func (conn *Conn) EmitWithAck(id int, name string, args ...interface{}) error {
	data := append([]interface{}{name}, args...)
	packet := sio.NewPacket(sio.PacketEvent, conn.nsp, data)
	packet.ID = id
	return conn.send(packet)
}

func (conn *Conn) onText(data string) bool {
	packet, err := sio.DecodePacket(data)
	if err != nil {
		log.Error("[siotest] %s", err.Error())
		return true
	}

	if packet.Attachments > 0 {
		conn.pending = packet
		return true
	}
	return conn.onPacket(packet)
}

func (conn *Conn) onBinary(data []byte) {
	if conn.pending == nil || !conn.pending.Attach(data) {
		return
	}
	packet := conn.pending
	conn.pending = nil
	if err := packet.Reconstruct(); err != nil {
		log.Error("[siotest] %s", err.Error())
		return
	}
	conn.onPacket(packet)
}

func (conn *Conn) onPacket(packet *sio.Packet) bool {
	switch packet.Type {
	case sio.PacketConnect:
		conn.nsp = packet.Namespace
		if conn.Query.Get("deny") != "" {
			conn.send(sio.NewPacket(sio.PacketConnectError, conn.nsp, map[string]interface{}{"message": conn.Query.Get("deny")}))
			return false
		}
		conn.send(sio.NewPacket(sio.PacketConnect, conn.nsp, map[string]interface{}{"sid": conn.SID}))
		conn.server.mu.Lock()
		conn.server.conns[conn.SID] = conn
		conn.server.mu.Unlock()
		select {
		case conn.server.joined <- conn:
		default:
		}

	case sio.PacketDisconnect:
		return false

	case sio.PacketEvent, sio.PacketBinaryEvent:
		args, ok := packet.Data.([]interface{})
		if !ok || len(args) == 0 {
			return true
		}
		name, _ := args[0].(string)
		args = args[1:]

		conn.server.mu.Lock()
		conn.server.received = append(conn.server.received, Record{SID: conn.SID, Name: name, Ack: -1, Args: args})
		handler := conn.server.handlers[name]
		conn.server.mu.Unlock()

		var res []interface{}
		if handler != nil {
			res = handler(conn, args)
		}

		if packet.ID >= 0 {
			if res == nil {
				res = []interface{}{}
			}
			ack := sio.NewPacket(sio.PacketAck, conn.nsp, res)
			ack.ID = packet.ID
			conn.send(ack)
		}

	case sio.PacketAck, sio.PacketBinaryAck:
		args, _ := packet.Data.([]interface{})
		conn.server.mu.Lock()
		conn.server.received = append(conn.server.received, Record{SID: conn.SID, Ack: packet.ID, Args: args})
		conn.server.mu.Unlock()
	}
	return true
}

func (conn *Conn) send(packet *sio.Packet) error {
	text, buffers, err := packet.Encode()
	if err != nil {
		return err
	}
	conn.wmu.Lock()
	defer conn.wmu.Unlock()
	if err := conn.ws.WriteMessage(websocket.TextMessage, append([]byte{'4'}, text...)); err != nil {
		return err
	}
	for _, buf := range buffers {
		if err := conn.ws.WriteMessage(websocket.BinaryMessage, buf); err != nil {
			return err
		}
	}
	return nil
}

func (conn *Conn) write(kind int, data []byte) error {
	conn.wmu.Lock()
	defer conn.wmu.Unlock()
	return conn.ws.WriteMessage(kind, data)
}

func (conn *Conn) ping(done chan struct{}) {
	ticker := time.NewTicker(time.Duration(conn.server.PingInterval) * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.write(websocket.TextMessage, []byte{'2'}); err != nil {
				return
			}
		}
	}
}
