package sio

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/yaoapp/kun/log"
)

const (
	writeWait       = 10 * time.Second
	readBufferSize  = 4096
	writeBufferSize = 4096
)

// ErrNotConnected the transport is not connected
var ErrNotConnected = errors.New("sio: not connected")

type result uint8

const (
	resultClosed  result = iota // closed on purpose
	resultDropped               // the transport was lost after the session opened
	resultFailed                // the session could not be opened
)

// NewClient create a socket.io client
func NewClient(option Option) *Client {
	option.Validate()
	client := &Client{option: option}
	client.socket = newSocket(client, option.Namespace)
	return client
}

// SetOpenListener the listener fired when the namespace is connected
func (client *Client) SetOpenListener(l func()) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners.open = l
}

// SetFailListener the listener fired when the connection could not be opened
func (client *Client) SetFailListener(l func()) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners.fail = l
}

// SetCloseListener the listener fired when an opened connection is closed
func (client *Client) SetCloseListener(l func(CloseReason)) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners.close = l
}

// SetReconnectingListener the listener fired when a reconnect attempt starts
func (client *Client) SetReconnectingListener(l func()) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners.reconnecting = l
}

// SetReconnectListener the listener fired when a reconnect attempt is scheduled
func (client *Client) SetReconnectListener(l func(attempt int, delay time.Duration)) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners.reconnect = l
}

// ClearConListeners remove the connection listeners
func (client *Client) ClearConListeners() {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.listeners = listeners{}
}

// SetReconnectAttempts set the reconnect budget
func (client *Client) SetReconnectAttempts(attempts int) {
	if attempts < 0 {
		attempts = 0
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	client.option.Attempts = attempts
}

// Socket the namespace socket
func (client *Client) Socket() *Socket {
	return client.socket
}

// Status the client status
func (client *Client) Status() uint32 {
	return client.status.Load()
}

// Opened reports whether the namespace is connected
func (client *Client) Opened() bool {
	return client.status.Load() == StatusOpened
}

// SessionID the engine.io session id
func (client *Client) SessionID() string {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.handshake.SID
}

// Connect open the connection in background. The listeners are called from the I/O goroutine.
func (client *Client) Connect(uri string, query map[string]string) {

	client.mu.Lock()
	if client.done != nil {
		client.mu.Unlock()
		log.With(log.F{"url": uri}).Warn("[sio] Connect: the client is running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	client.url = uri
	client.query = map[string]string{}
	for key, value := range query {
		client.query[key] = value
	}
	client.cancel = cancel
	client.done = make(chan struct{})
	client.closing = false
	client.reconns = 0
	done := client.done
	client.mu.Unlock()

	client.socket.setNamespace(namespaceOf(uri, client.option.Namespace))
	client.status.Store(StatusOpening)
	go client.run(ctx, done)
}

// Close close the connection, the close listener is called from the I/O goroutine
func (client *Client) Close() {
	client.mu.Lock()
	if client.done == nil || client.closing {
		client.mu.Unlock()
		return
	}
	client.closing = true
	cancel := client.cancel
	conn := client.conn
	client.mu.Unlock()

	client.status.Store(StatusClosing)
	if conn != nil {
		if client.socket.isConnected() {
			client.socket.sendDisconnect()
		}
		client.writeText(string(eioClose))
		client.wmu.Lock()
		conn.Close()
		client.wmu.Unlock()
	}
	cancel()
}

// SyncClose close the connection and wait until the I/O goroutine exits.
// It must not be called from a listener.
func (client *Client) SyncClose() {
	client.mu.Lock()
	done := client.done
	client.mu.Unlock()

	client.Close()
	if done != nil {
		<-done
	}
}

func (client *Client) run(ctx context.Context, done chan struct{}) {

	defer func() {
		client.mu.Lock()
		client.done = nil
		client.cancel = nil
		client.conn = nil
		client.mu.Unlock()
		client.status.Store(StatusClosed)
		close(done)
	}()

	// an opened session was lost, the failed reconnects keep it a drop
	dropped := false
	for {
		res, err := client.session(ctx)
		if res == resultDropped {
			dropped = true
		}

		if client.isClosing() {
			log.With(log.F{"url": client.url}).Trace("[sio] closed")
			client.emitClose(CloseReasonNormal)
			return
		}

		if res == resultClosed {
			log.With(log.F{"url": client.url}).Trace("[sio] closed by the server")
			client.emitClose(CloseReasonNormal)
			return
		}

		log.With(log.F{"url": client.url}).Trace("[sio] connection lost: %v", err)
		attempt, ok := client.nextAttempt()
		if !ok {
			if dropped {
				client.emitClose(CloseReasonDrop)
				return
			}
			log.With(log.F{"url": client.url}).Error("[sio] Connect: %v", err)
			client.emitFail()
			return
		}

		delay := client.option.delay(attempt)
		client.emitReconnect(attempt, delay)
		log.With(log.F{"url": client.url}).Trace("[sio] Try to reconnect after %v (%d/%d)", delay, attempt, client.option.Attempts)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			client.emitClose(CloseReasonNormal)
			return
		case <-timer.C:
		}

		client.status.Store(StatusOpening)
		client.emitReconnecting()
	}
}

// session dial, handshake and read until the transport is closed
func (client *Client) session(ctx context.Context) (result, error) {

	endpoint, err := client.endpoint()
	if err != nil {
		return resultFailed, err
	}

	header := http.Header{}
	for key, value := range client.option.Headers {
		header.Set(key, value)
	}

	dialer := websocket.Dialer{
		ReadBufferSize:   readBufferSize,
		WriteBufferSize:  writeBufferSize,
		HandshakeTimeout: client.option.Timeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		return resultFailed, err
	}

	client.mu.Lock()
	if client.closing {
		client.mu.Unlock()
		conn.Close()
		return resultClosed, nil
	}
	client.conn = conn
	client.pending = nil
	client.mu.Unlock()

	defer func() {
		client.socket.onTransportClose()
		client.mu.Lock()
		client.conn = nil
		client.mu.Unlock()
		conn.Close()
	}()

	// the engine.io open packet
	conn.SetReadDeadline(time.Now().Add(client.option.Timeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return resultFailed, err
	}

	if len(data) == 0 || data[0] != eioOpen {
		return resultFailed, errors.Errorf("unexpected handshake packet: %s", data)
	}

	var hs handshake
	if err := jsoniter.Unmarshal(data[1:], &hs); err != nil {
		return resultFailed, errors.Errorf("invalid handshake: %w", err)
	}

	client.mu.Lock()
	client.handshake = hs
	client.mu.Unlock()

	log.With(log.F{"url": client.url, "sid": hs.SID}).Trace("[sio] engine.io opened")
	if err := client.socket.sendConnect(); err != nil {
		return resultFailed, err
	}

	opened := false
	for {
		conn.SetReadDeadline(time.Now().Add(client.readTimeout()))
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if client.isClosing() {
				return resultClosed, nil
			}
			if opened {
				return resultDropped, err
			}
			return resultFailed, err
		}

		if kind == websocket.BinaryMessage {
			client.onBinary(data)
			continue
		}

		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case eioPing:
			client.writeText(string(eioPong) + string(data[1:]))

		case eioClose:
			return resultClosed, nil

		case eioMessage:
			closed, err := client.onText(string(data[1:]))
			if err != nil {
				log.With(log.F{"url": client.url}).Error("[sio] %s", err.Error())
				continue
			}

			if !opened && client.socket.isConnected() {
				opened = true
				client.resetAttempts()
				client.status.Store(StatusOpened)
				client.emitOpen()
			}

			if closed {
				return resultClosed, nil
			}

		case eioNoop, eioUpgrade, eioPong, eioOpen:
		}
	}
}

// onText handle a socket.io text packet, returns true when the namespace was disconnected by the server
func (client *Client) onText(data string) (bool, error) {
	packet, err := DecodePacket(data)
	if err != nil {
		return false, err
	}

	if packet.Attachments > 0 {
		client.pending = packet
		return false, nil
	}

	return client.socket.onPacket(packet), nil
}

func (client *Client) onBinary(data []byte) {
	packet := client.pending
	if packet == nil {
		log.With(log.F{"url": client.url}).Warn("[sio] unexpected binary frame (%d bytes)", len(data))
		return
	}

	if !packet.Attach(data) {
		return
	}

	client.pending = nil
	if err := packet.Reconstruct(); err != nil {
		log.With(log.F{"url": client.url}).Error("[sio] %s", err.Error())
		return
	}
	client.socket.onPacket(packet)
}

func (client *Client) endpoint() (string, error) {
	client.mu.Lock()
	raw := client.url
	query := client.query
	client.mu.Unlock()

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("the scheme %s does not support", u.Scheme)
	}
	u.Path = client.option.Path

	values := u.Query()
	for key, value := range query {
		values.Set(key, value)
	}
	values.Set("EIO", "4")
	values.Set("transport", "websocket")
	u.RawQuery = values.Encode()

	return u.String(), nil
}

// namespaceOf the namespace in the url path, like the javascript client does
func namespaceOf(uri string, fallback string) string {
	u, err := url.Parse(uri)
	if err != nil || fallback != "/" {
		return fallback
	}
	if u.Path == "" || u.Path == "/" {
		return fallback
	}
	return u.Path
}

func (client *Client) readTimeout() time.Duration {
	client.mu.Lock()
	hs := client.handshake
	client.mu.Unlock()
	if hs.PingInterval <= 0 {
		return client.option.Timeout
	}
	return time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
}

func (client *Client) write(frames ...frame) error {
	client.mu.Lock()
	conn := client.conn
	client.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	client.wmu.Lock()
	defer client.wmu.Unlock()
	for _, f := range frames {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(f.kind, f.data); err != nil {
			return err
		}
	}
	return nil
}

func (client *Client) writeText(data string) error {
	return client.write(frame{kind: websocket.TextMessage, data: []byte(data)})
}

func (client *Client) isClosing() bool {
	client.mu.Lock()
	defer client.mu.Unlock()
	return client.closing
}

func (client *Client) nextAttempt() (int, bool) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closing || client.reconns >= client.option.Attempts {
		return 0, false
	}
	client.reconns++
	return client.reconns, true
}

func (client *Client) resetAttempts() {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.reconns = 0
}

func (client *Client) emitOpen() {
	client.mu.Lock()
	l := client.listeners.open
	client.mu.Unlock()
	if l != nil {
		l()
	}
}

func (client *Client) emitFail() {
	client.mu.Lock()
	l := client.listeners.fail
	client.mu.Unlock()
	if l != nil {
		l()
	}
}

func (client *Client) emitClose(reason CloseReason) {
	client.mu.Lock()
	l := client.listeners.close
	client.mu.Unlock()
	if l != nil {
		l(reason)
	}
}

func (client *Client) emitReconnecting() {
	client.mu.Lock()
	l := client.listeners.reconnecting
	client.mu.Unlock()
	if l != nil {
		l()
	}
}

func (client *Client) emitReconnect(attempt int, delay time.Duration) {
	client.mu.Lock()
	l := client.listeners.reconnect
	client.mu.Unlock()
	if l != nil {
		l(attempt, delay)
	}
}
