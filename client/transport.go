package client

import (
	"fmt"
	"sync"

	"collabroom/config"
	"collabroom/internal/logx"
	"collabroom/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler consumes one inbound relay envelope.
type Handler func(env *config.Envelope)

// Emitter is the write half of the relay connection. State objects hold
// this interface so they can be driven without a live socket in tests.
type Emitter interface {
	Send(env *config.Envelope) error
}

// Transport is the single persistent relay connection of a client. The
// relay delivers ordered-per-sender; reordering across senders is the
// receiver's problem and handled by the state objects.
type Transport struct {
	url      string
	conn     *websocket.Conn
	writeMu  sync.Mutex
	handlers map[string][]Handler
	done     chan struct{}
	closeOnce sync.Once
}

func NewTransport(serverURL string) *Transport {
	return &Transport{
		url:      serverURL,
		handlers: make(map[string][]Handler),
		done:     make(chan struct{}),
	}
}

// On registers a handler for one event name. Registration must finish
// before Connect; the read loop consults the map without locking.
func (t *Transport) On(event string, h Handler) {
	t.handlers[event] = append(t.handlers[event], h)
}

func (t *Transport) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(t.url, nil)
	if err != nil {
		return fmt.Errorf("transport: dial %s: %w", t.url, err)
	}
	t.conn = conn

	go t.readLoop()
	return nil
}

func (t *Transport) readLoop() {
	defer t.Close()

	for {
		_, raw, err := t.conn.ReadMessage()
		if err != nil {
			return
		}

		env, err := middleware.DecodeEnvelope(raw)
		if err != nil {
			logx.From(nil).Debug("transport_bad_frame", zap.Error(err))
			continue
		}

		for _, h := range t.handlers[env.Event] {
			h(env)
		}
	}
}

func (t *Transport) Send(env *config.Envelope) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.conn == nil {
		return fmt.Errorf("transport: not connected")
	}
	return t.conn.WriteMessage(websocket.TextMessage, middleware.EncodeMsg(env))
}

// Join registers this connection in a room under peerID.
func (t *Transport) Join(roomID, peerID string) error {
	return t.Send(&config.Envelope{
		Event:  config.EvJoinRoom,
		RoomID: roomID,
		PeerID: peerID,
	})
}

// Close tears the connection down. Leaving a room has no other protocol;
// peers learn about it from the relay's disconnect notification.
func (t *Transport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if t.conn != nil {
			err = t.conn.Close()
		}
	})
	return err
}

// Done is closed once the connection is gone.
func (t *Transport) Done() <-chan struct{} { return t.done }
