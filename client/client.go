package client

import (
	"fmt"

	"collabroom/config"
	"github.com/google/uuid"
)

// Options configures a room membership.
type Options struct {
	ServerURL string // ws://host/ws
	RoomID    string // short room code
	PeerID    string // generated when empty
	Name      string // chat display name
	Email     string // chat contact tag
	Devices   MediaDevices // nil leaves the call layer dark
}

// RoomClient is one participant: a single relay connection feeding three
// independent state objects plus the peer mesh. The drawing surface, the
// editor widget and the export serializer read the state objects; the
// client never depends on them.
type RoomClient struct {
	Canvas *CanvasLog
	Doc    *Document
	Chat   *ChatLog
	Mesh   *Mesh

	transport *Transport
	roomID    string
	peerID    string
}

// JoinRoom connects to the relay, wires event dispatch, resolves local
// media and announces presence.
func JoinRoom(opts Options) (*RoomClient, error) {
	if opts.ServerURL == "" || opts.RoomID == "" {
		return nil, fmt.Errorf("client: server url and room id required")
	}

	peerID := opts.PeerID
	if peerID == "" {
		peerID = uuid.NewString()
	}

	t := NewTransport(opts.ServerURL)

	rc := &RoomClient{
		Canvas:    NewCanvasLog(t),
		Doc:       NewDocument(t),
		Chat:      NewChatLog(opts.Name, opts.Email, t),
		transport: t,
		roomID:    opts.RoomID,
		peerID:    peerID,
	}

	connector := NewPionConnector(peerID, t)
	rc.Mesh = NewMesh(opts.Devices, connector)

	t.On(config.EvCanvasData, func(env *config.Envelope) {
		rc.Canvas.ReceiveRemote(env.Stroke)
	})
	t.On(config.EvClear, func(env *config.Envelope) {
		rc.Canvas.ClearAll()
	})
	t.On(config.EvCodeUpdate, func(env *config.Envelope) {
		if env.Code != nil {
			rc.Doc.ReceiveRemote(env.Code.Text)
		}
	})
	t.On(config.EvReceiveMessage, func(env *config.Envelope) {
		if env.Chat != nil {
			rc.Chat.Receive(*env.Chat)
		}
	})
	t.On(config.EvUserConnected, func(env *config.Envelope) {
		rc.Mesh.HandleUserConnected(env.PeerID)
	})
	t.On(config.EvUserDisconnected, func(env *config.Envelope) {
		rc.Mesh.HandleUserDisconnected(env.PeerID)
	})
	for _, ev := range []string{config.EvRTCOffer, config.EvRTCAnswer, config.EvRTCIce} {
		t.On(ev, connector.HandleSignal)
	}

	if err := t.Connect(); err != nil {
		return nil, err
	}

	// Presence is announced only once media acquisition has settled, so
	// peers never call a client that cannot answer yet.
	if err := rc.Mesh.Join(func() error {
		return t.Join(opts.RoomID, peerID)
	}); err != nil {
		t.Close()
		return nil, err
	}

	return rc, nil
}

func (rc *RoomClient) RoomID() string { return rc.roomID }
func (rc *RoomClient) PeerID() string { return rc.peerID }

// Clear requests a room-wide canvas reset. The local log truncates when
// the relay's broadcast comes back around, same as everyone else's.
func (rc *RoomClient) Clear() error {
	return rc.transport.Send(&config.Envelope{Event: config.EvClear})
}

// Leave drops the mesh and closes the relay connection. Best-effort: the
// relay's disconnect notification is what tells the room.
func (rc *RoomClient) Leave() {
	rc.Mesh.Leave()
	_ = rc.transport.Close()
}

// Done is closed once the relay connection is gone.
func (rc *RoomClient) Done() <-chan struct{} { return rc.transport.Done() }
