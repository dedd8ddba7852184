package socketio

import (
	"github.com/yaoapp/siobridge/message"
	"github.com/yaoapp/siobridge/sio"
)

// native the Native implementation on the sio client
type native struct {
	client *sio.Client
}

// NativeDialer create a native connection with the sio client
func NativeDialer(option sio.Option) Native {
	return &native{client: sio.NewClient(option)}
}

func (n *native) SetOpenListener(l func()) { n.client.SetOpenListener(l) }
func (n *native) SetFailListener(l func()) { n.client.SetFailListener(l) }
func (n *native) SetCloseListener(l func(sio.CloseReason)) { n.client.SetCloseListener(l) }
func (n *native) SetReconnectingListener(l func()) { n.client.SetReconnectingListener(l) }
func (n *native) SetReconnectAttempts(attempts int) { n.client.SetReconnectAttempts(attempts) }
func (n *native) Connect(url string, query map[string]string) { n.client.Connect(url, query) }
func (n *native) SyncClose() { n.client.SyncClose() }
func (n *native) ClearConListeners() { n.client.ClearConListeners() }

func (n *native) On(event string, l func(name string, msg *message.Message)) {
	n.client.Socket().On(event, func(e *sio.Event) {
		l(e.Name(), e.Message())
	})
}

// OnError the connect error payload {"message": "..."} is passed as its message string
func (n *native) OnError(l func(msg *message.Message)) {
	n.client.Socket().OnError(func(msg *message.Message) {
		if text := msg.GetMap()["message"]; text.Flag() == message.FlagString {
			msg = text
		}
		l(msg)
	})
}

func (n *native) Emit(event string, args message.List, ack func(message.List)) error {
	if ack == nil {
		return n.client.Socket().Emit(event, args, nil)
	}
	return n.client.Socket().Emit(event, args, sio.AckListener(ack))
}

func (n *native) ClearSocketListeners() {
	n.client.Socket().OffAll()
	n.client.Socket().OffError()
}
