package socketio

import (
	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/yaoapp/kun/log"
	"github.com/yaoapp/siobridge/sio"
)

// New create a hub, the listeners run on the executor
func New(executor Executor) *Hub {
	return &Hub{executor: executor, dialer: NativeDialer}
}

// WithDialer set the native connection factory
func (hub *Hub) WithDialer(dialer Dialer) *Hub {
	hub.dialer = dialer
	return hub
}

// Connect open a connection with the default options
func (hub *Hub) Connect(url string, query map[string]string) (*Client, error) {
	return hub.connect(url, query, sio.Option{Attempts: DefaultAttempts})
}

// ConnectProfile open a connection with the profile options
func (hub *Hub) ConnectProfile(profile *Profile) (*Client, error) {
	if profile == nil {
		return nil, errors.Errorf("the profile is required")
	}
	return hub.connect(profile.URL, profile.Query, profile.Option())
}

// Lookup the attached connection
func (hub *Hub) Lookup(id string) (*Client, bool) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}

	v, has := hub.live.Load(uid)
	if !has {
		return nil, false
	}
	return v.(*Client), true
}

// Close finalize every connection created by the hub
func (hub *Hub) Close() {
	hub.clients.Range(func(key, value interface{}) bool {
		value.(*Client).Finalize()
		return true
	})
}

func (hub *Hub) connect(url string, query map[string]string, option sio.Option) (*Client, error) {
	if url == "" {
		return nil, errors.Errorf("the url is required")
	}

	if hub.executor == nil {
		return nil, errors.Errorf("the executor is required")
	}

	option.Validate()
	id := uuid.New()
	client := &Client{
		id:       id,
		url:      url,
		query:    map[string]string{},
		attempts: option.Attempts,
		hub:      hub,
		native:   hub.dialer(option),
		delegate: newDelegate(id, hub),
	}

	for key, value := range query {
		client.query[key] = value
	}

	hub.live.Store(id, client)
	hub.clients.Store(id, client)

	delegate := client.delegate
	delegate.connecting()

	native := client.native
	native.SetOpenListener(delegate.onOpen)
	native.SetFailListener(delegate.onFail)
	native.SetCloseListener(delegate.onClose)
	native.SetReconnectingListener(delegate.onReconnecting)
	native.OnError(delegate.onError)
	native.SetReconnectAttempts(option.Attempts)

	log.With(log.F{"id": id.String(), "url": url}).Trace("[socketio] connecting")
	native.Connect(url, client.Query())
	return client, nil
}

func (hub *Hub) alive(id uuid.UUID) bool {
	_, has := hub.live.Load(id)
	return has
}

// detach unlink the wrapper from the native dispatch
func (hub *Hub) detach(id uuid.UUID) {
	if _, has := hub.live.LoadAndDelete(id); has {
		log.With(log.F{"id": id.String()}).Trace("[socketio] detached")
	}
}
