package sio

import (

	"github.com/go-errors/errors"
	"github.com/gorilla/websocket"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/message"
)

func newSocket(client *Client, namespace string) *Socket {
	return &Socket{
		client:    client,
		namespace: namespace,
		events:    map[string]EventListener{},
		acks:      map[int]AckListener{},
		queue:     []*Packet{},
	}
}

// Namespace the socket namespace
func (s *Socket) Namespace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.namespace
}

// On set the listener of the event, replaces the previous one
func (s *Socket) On(name string, l EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[name] = l
}

// Off remove the listener of the event
func (s *Socket) Off(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, name)
}

// OffAll remove all the event listeners
func (s *Socket) OffAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = map[string]EventListener{}
}

// OnError set the error listener
func (s *Socket) OnError(l ErrorListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = l
}

// OffError remove the error listener
func (s *Socket) OffError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = nil
}

// Emit send an event. The packet is queued until the namespace is connected.
// The ack listener is called from the I/O goroutine with the server response.
func (s *Socket) Emit(name string, args message.List, ack AckListener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	packet := NewPacket(PacketEvent, s.namespace, eventData(name, args))
	if ack != nil {
		packet.ID = s.ackID
		s.acks[s.ackID] = ack
		s.ackID++
	}

	if !s.connected {
		s.queue = append(s.queue, packet)
		return nil
	}

	return s.send(packet)
}

// Name the event name
func (event *Event) Name() string {
	return event.name
}

// Message the first argument of the event, null if none
func (event *Event) Message() *message.Message {
	return event.messages.At(0)
}

// Messages the event arguments
func (event *Event) Messages() message.List {
	return event.messages
}

// NeedAck reports whether the server waits for an ack
func (event *Event) NeedAck() bool {
	return event.ackID >= 0
}

// Ack answer the event
func (event *Event) Ack(args message.List) error {
	if !event.NeedAck() {
		return errors.Errorf("the event %s does not need an ack", event.name)
	}
	s := event.socket
	s.mu.Lock()
	defer s.mu.Unlock()
	packet := NewPacket(PacketAck, s.namespace, ackData(args))
	packet.ID = event.ackID
	return s.send(packet)
}

func (s *Socket) setNamespace(namespace string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.namespace = namespace
}

func (s *Socket) isConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// send write the packet, the caller holds s.mu
func (s *Socket) send(packet *Packet) error {
	text, buffers, err := packet.Encode()
	if err != nil {
		return err
	}

	frames := []frame{{kind: websocket.TextMessage, data: append([]byte{eioMessage}, text...)}}
	for _, buf := range buffers {
		frames = append(frames, frame{kind: websocket.BinaryMessage, data: buf})
	}
	return s.client.write(frames...)
}

func (s *Socket) sendConnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(NewPacket(PacketConnect, s.namespace, nil))
}

func (s *Socket) sendDisconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send(NewPacket(PacketDisconnect, s.namespace, nil))
}

func (s *Socket) onConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	queue := s.queue
	s.queue = []*Packet{}
	for _, packet := range queue {
		if err := s.send(packet); err != nil {
			log.Error("[sio] flush the queued packet: %s", err.Error())
		}
	}
}

func (s *Socket) onTransportClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.client.isClosing() {
		s.acks = map[int]AckListener{}
		s.queue = []*Packet{}
	}
}

// onPacket handle the packet, returns true when the server disconnected the namespace
func (s *Socket) onPacket(packet *Packet) bool {

	if packet.Namespace != s.Namespace() {
		log.Trace("[sio] ignore the packet of namespace %s", packet.Namespace)
		return false
	}

	switch packet.Type {
	case PacketConnect:
		s.onConnected()

	case PacketDisconnect:
		log.Trace("[sio] the namespace %s was disconnected by the server", packet.Namespace)
		return true

	case PacketEvent, PacketBinaryEvent:
		s.onEvent(packet)

	case PacketAck, PacketBinaryAck:
		s.onAck(packet)

	case PacketConnectError:
		s.mu.Lock()
		l := s.onError
		s.mu.Unlock()
		if l != nil {
			var data interface{}
			if packet.Data != nil {
				data = packet.Data
			}
			l(toMessage(data))
		}
	}

	return false
}

func (s *Socket) onEvent(packet *Packet) {
	messages := packet.Messages()
	if len(messages) == 0 || messages[0].Flag() != message.FlagString {
		log.Warn("[sio] invalid event packet: %v", packet.Data)
		return
	}

	event := &Event{
		name:     messages[0].GetString(),
		messages: messages[1:],
		ackID:    packet.ID,
		socket:   s,
	}

	s.mu.Lock()
	l, has := s.events[event.name]
	s.mu.Unlock()
	if !has || l == nil {
		log.Trace("[sio] no listener for the event %s", event.name)
		return
	}
	l(event)
}

func (s *Socket) onAck(packet *Packet) {
	s.mu.Lock()
	l, has := s.acks[packet.ID]
	delete(s.acks, packet.ID)
	s.mu.Unlock()

	if !has {
		log.Warn("[sio] unknown ack id %d", packet.ID)
		return
	}
	l(packet.Messages())
}
