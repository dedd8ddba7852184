package socketio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yaoapp/siobridge/loop"
	"github.com/yaoapp/siobridge/message"
	"github.com/yaoapp/siobridge/sio"
	"github.com/yaoapp/siobridge/socketio/nativetest"
)

var _ Native = (*nativetest.Native)(nil)

func prepare(t *testing.T) (*Hub, *loop.Loop, *nativetest.Factory) {
	l := loop.New()
	factory := &nativetest.Factory{}
	hub := New(l).WithDialer(func(option sio.Option) Native { return factory.Dial(option) })
	t.Cleanup(func() {
		hub.Close()
		l.Drain()
	})
	return hub, l, factory
}

func TestConnect(t *testing.T) {
	hub, l, factory := prepare(t)

	client, err := hub.Connect("ws://host", map[string]string{"a": "1"})
	require.NoError(t, err)
	native := factory.Last()

	assert.Equal(t, "ws://host", native.URL())
	assert.Equal(t, map[string]string{"a": "1"}, native.Query())
	assert.Equal(t, 1, native.Connects())
	assert.Equal(t, DefaultAttempts, native.Attempts())
	assert.Equal(t, StateConnecting, client.State())
	assert.Equal(t, 2, client.Delegate().Refs())

	found, has := hub.Lookup(client.ID().String())
	assert.True(t, has)
	assert.Equal(t, client, found)

	r := &recorder{}
	target := NewTarget()
	require.NoError(t, client.On(EventConnect, r.value(), NewObject(target)))
	assert.True(t, native.Listening(EventConnect))

	native.Open()
	assert.Equal(t, StateOpen, client.State())
	assert.Equal(t, 0, r.count())

	l.Drain()
	require.Equal(t, 1, r.count())
	require.Len(t, r.args[0], 1)
	assert.Equal(t, KindNull, r.args[0][0].Kind())
	assert.Equal(t, target, r.this[0].Object())

	// reconnected by the native layer
	native.Open()
	l.Drain()
	assert.Equal(t, 2, r.count())
}

func TestConnectErrors(t *testing.T) {
	hub, _, _ := prepare(t)
	_, err := hub.Connect("", nil)
	assert.Error(t, err)

	_, err = New(nil).Connect("ws://host", nil)
	assert.Error(t, err)

	_, has := hub.Lookup("not-a-uuid")
	assert.False(t, has)
}

func TestDisconnectReason(t *testing.T) {
	for reason, payload := range map[sio.CloseReason]string{
		sio.CloseReasonNormal: CloseReasonNormal,
		sio.CloseReasonDrop:   CloseReasonDrop,
	} {
		hub, l, factory := prepare(t)
		client, err := hub.Connect("ws://host", nil)
		require.NoError(t, err)
		native := factory.Last()

		r := &recorder{}
		require.NoError(t, client.On(EventDisconnect, r.value(), NewObject(NewTarget())))
		native.Open()
		native.Close(reason)
		assert.Equal(t, StateClosing, client.State())

		l.Drain()
		require.Equal(t, 1, r.count())
		assert.Equal(t, payload, r.args[0][0].Str())
		assert.Equal(t, StateClosed, client.State())
		assert.Equal(t, 1, client.Delegate().Refs())

		_, has := hub.Lookup(client.ID().String())
		assert.False(t, has)
	}
}

func TestDropAfterDetach(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()

	errs := &recorder{}
	news := &recorder{}
	target := NewObject(NewTarget())
	require.NoError(t, client.On(EventError, errs.value(), target))
	require.NoError(t, client.On("news", news.value(), target))

	native.Open()
	native.Error(message.String("transport error"))
	assert.True(t, native.Event("news", message.String("late")))
	assert.Equal(t, StateOpen, client.State())

	l.Drain()
	require.Equal(t, 1, errs.count())
	assert.Equal(t, "transport error", errs.args[0][0].Str())
	assert.Equal(t, 0, news.count())
	assert.Equal(t, StateOpen, client.State())

	_, has := hub.Lookup(client.ID().String())
	assert.False(t, has)

	// still dropped later
	native.Event("news", message.String("later"))
	l.Drain()
	assert.Equal(t, 0, news.count())
}

func TestEvents(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()

	first := &recorder{}
	second := &recorder{}
	target := NewObject(NewTarget())
	require.NoError(t, client.On("news", first.value(), target))
	require.NoError(t, client.On("news", second.value(), target))
	assert.ErrorIs(t, client.On("news", Null(), target), ErrInvalidListener)

	native.Open()
	assert.False(t, native.Event("unknown", message.Null()))

	buf := []byte{0x01, 0x02}
	native.Event("news", message.Binary(buf))
	native.Event("news", message.Integer(7))
	buf[0] = 0xff

	l.Drain()
	assert.Equal(t, 0, first.count())
	require.Equal(t, 2, second.count())
	assert.Equal(t, []byte{0x01, 0x02}, second.args[0][0].Bytes())
	assert.Equal(t, 7.0, second.args[1][0].Number())
}

func TestEmitAck(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()
	native.Open()

	r := &recorder{}
	require.NoError(t, client.Emit("msg", NewString("hello"), NewNumber(42), r.value()))

	emits := native.Emits()
	require.Len(t, emits, 1)
	assert.Equal(t, "msg", emits[0].Event)
	assert.True(t, emits[0].HasAck())
	require.Len(t, emits[0].Args, 2)
	assert.Equal(t, "hello", emits[0].Args[0].GetString())
	assert.Equal(t, message.FlagDouble, emits[0].Args[1].Flag())
	assert.Equal(t, 42.0, emits[0].Args[1].GetDouble())

	res := message.List{}
	res.Push(message.String("ack_string"))
	assert.True(t, native.Ack(0, res))
	assert.False(t, native.Ack(0, res))
	assert.Equal(t, 0, r.count())

	l.Drain()
	require.Equal(t, 1, r.count())
	require.Len(t, r.args[0], 1)
	assert.Equal(t, "ack_string", r.args[0][0].Str())

	require.NoError(t, client.Emit("plain", NewBoolean(true)))
	emits = native.Emits()
	require.Len(t, emits, 2)
	assert.False(t, emits[1].HasAck())
}

func TestEmitInvalidArguments(t *testing.T) {
	hub, _, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()
	native.Open()

	ack := &recorder{}
	err = client.Emit("msg", ack.value(), NewString("bad"))
	assert.ErrorIs(t, err, ErrInvalidEmitArguments)
	assert.ErrorIs(t, err, ErrUnsupportedArgumentPosition)

	err = client.Emit("msg", NewObject(NewTarget()))
	assert.ErrorIs(t, err, ErrInvalidEmitArguments)
	assert.Empty(t, native.Emits())
}

func TestFail(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()

	r := &recorder{}
	news := &recorder{}
	target := NewObject(NewTarget())
	require.NoError(t, client.On(EventConnectError, r.value(), target))
	require.NoError(t, client.On("news", news.value(), target))

	native.Fail()
	assert.Equal(t, StateFailed, client.State())
	assert.Equal(t, 2, client.Delegate().Refs()) // the handle and the pending task

	native.Open()
	native.Event("news", message.Null())
	native.Error(message.String("ignored"))
	native.Close(sio.CloseReasonDrop)

	l.Drain()
	require.Equal(t, 1, r.count())
	assert.Equal(t, KindNull, r.args[0][0].Kind())
	assert.Equal(t, 0, news.count())
	assert.Equal(t, StateFailed, client.State())
	assert.Equal(t, 1, client.Delegate().Refs())
}

func TestFinalize(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()

	target := NewTarget()
	r := &recorder{}
	require.NoError(t, client.On(EventDisconnect, r.value(), NewObject(target)))
	assert.Equal(t, 1, target.Len())
	native.Open()
	l.Drain()

	client.Finalize()
	client.Finalize()
	assert.Equal(t, 1, native.SyncCloses())
	assert.False(t, native.HasConListeners())
	assert.False(t, native.Listening(EventDisconnect))
	assert.ErrorIs(t, client.On("x", r.value(), NewObject(target)), ErrClosed)
	assert.ErrorIs(t, client.Emit("x"), ErrClosed)

	l.Drain()
	assert.Equal(t, 0, r.count())
	assert.Equal(t, 0, client.Delegate().Refs())
	assert.Equal(t, 0, client.Delegate().Registry().Len())
	assert.Equal(t, 0, target.Len())

	_, has := hub.Lookup(client.ID().String())
	assert.False(t, has)
}

func TestDisconnect(t *testing.T) {
	hub, l, factory := prepare(t)
	client, err := hub.Connect("ws://host", nil)
	require.NoError(t, err)
	native := factory.Last()

	r := &recorder{}
	require.NoError(t, client.On(EventDisconnect, r.value(), NewObject(NewTarget())))
	native.Open()
	client.Disconnect()
	assert.Equal(t, 1, native.SyncCloses())

	l.Drain()
	require.Equal(t, 1, r.count())
	assert.Equal(t, CloseReasonNormal, r.args[0][0].Str())
	assert.Equal(t, StateClosed, client.State())
}

func TestHubClose(t *testing.T) {
	hub, l, factory := prepare(t)
	a, err := hub.Connect("ws://a", nil)
	require.NoError(t, err)
	b, err := hub.ConnectProfile(&Profile{URL: "ws://b", Path: "/io/"})
	require.NoError(t, err)
	assert.Equal(t, "/io/", factory.Last().Option.Path)

	hub.Close()
	l.Drain()
	assert.ErrorIs(t, a.Emit("x"), ErrClosed)
	assert.ErrorIs(t, b.Emit("x"), ErrClosed)
	for _, native := range factory.Natives() {
		assert.Equal(t, 1, native.SyncCloses())
	}

	_, err = hub.ConnectProfile(nil)
	assert.Error(t, err)
}
