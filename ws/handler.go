package ws

import (
	"net/http"
	"time"

	"collabroom/config"
	"collabroom/db"
	"collabroom/internal/logx"
	"collabroom/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Relay routes the five event kinds to the right audience without looking
// at payload content. It holds no state beyond live membership.
type Relay struct {
	hub     *Hub
	strokes *strokeBuffer
	archive *db.Archive
}

// NewRelay wires the relay; archive may be nil, in which case events are
// relayed but not recorded for export.
func NewRelay(archive *db.Archive) *Relay {
	return &Relay{
		hub:     NewHub(),
		strokes: newStrokeBuffer(),
		archive: archive,
	}
}

func (rl *Relay) Hub() *Hub { return rl.hub }

func (rl *Relay) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logx.From(r.Context()).Warn("ws_upgrade", zap.Error(err))
		return
	}

	client := &Client{
		relay: rl,
		conn:  conn,
		send:  make(chan []byte, 256),
	}

	go client.write()
	client.read()
}

func (rl *Relay) route(c *Client, raw []byte) {
	env, err := middleware.DecodeEnvelope(raw)
	if err != nil {
		// Malformed frames are dropped, never echoed back.
		return
	}

	if env.Event == config.EvJoinRoom {
		rl.join(c, env)
		return
	}

	// Every data event is scoped to the sender's current room; a client
	// that never joined has no audience.
	if c.roomID == "" {
		return
	}

	switch env.Event {

	case config.EvCanvasData:
		if env.Stroke == nil {
			return
		}
		rl.hub.Broadcast(c.roomID, rl.stamp(c, env), c)
		rl.archiveStroke(c, env.Stroke)

	case config.EvClear:
		// Clearing resets the whole room, sender included.
		rl.hub.Broadcast(c.roomID, rl.stamp(c, env), nil)
		rl.archiveOp(c, config.OpClear, "", nil)

	case config.EvCodeChange:
		if env.Code == nil {
			return
		}
		out := *env
		out.Event = config.EvCodeUpdate
		rl.hub.Broadcast(c.roomID, rl.stamp(c, &out), c)
		rl.archiveOp(c, config.OpCode, "", middleware.EncodeMsg(env.Code))

	case config.EvSendMessage:
		if env.Chat == nil {
			return
		}
		out := *env
		out.Event = config.EvReceiveMessage
		rl.hub.Broadcast(c.roomID, rl.stamp(c, &out), c)
		rl.archiveOp(c, config.OpChat, "", middleware.EncodeMsg(env.Chat))

	case config.EvRTCOffer, config.EvRTCAnswer, config.EvRTCIce:
		if env.To == "" {
			return
		}
		out := *env
		out.PeerID = c.peerID
		rl.hub.SendToPeer(c.roomID, env.To, middleware.EncodeMsg(&out))
	}
}

func (rl *Relay) join(c *Client, env *config.Envelope) {
	if env.RoomID == "" || env.PeerID == "" {
		return
	}

	// One room at a time; a re-join moves the connection.
	if c.roomID != "" {
		rl.leaveCurrent(c)
	}

	c.roomID = env.RoomID
	c.peerID = env.PeerID

	// An evicted connection may still deliver frames until its pumps
	// drain; it must not get back into a room.
	if !rl.hub.Join(c.roomID, c) {
		c.roomID, c.peerID = "", ""
		return
	}

	rl.hub.Broadcast(c.roomID, middleware.EncodeMsg(&config.Envelope{
		Event:  config.EvUserConnected,
		RoomID: c.roomID,
		PeerID: c.peerID,
	}), c)

	logx.From(nil).Info("join_room",
		zap.String("room", c.roomID),
		zap.String("peer", c.peerID),
	)
}

func (rl *Relay) disconnect(c *Client) {
	if c.roomID == "" {
		return
	}
	rl.leaveCurrent(c)
}

func (rl *Relay) leaveCurrent(c *Client) {
	roomID, peerID := c.roomID, c.peerID
	c.roomID, c.peerID = "", ""

	rl.hub.Leave(roomID, c)
	rl.hub.Broadcast(roomID, middleware.EncodeMsg(&config.Envelope{
		Event:  config.EvUserDisconnected,
		RoomID: roomID,
		PeerID: peerID,
	}), nil)
}

// stamp fills in the sender identity before rebroadcast so receivers can
// key state by originating peer.
func (rl *Relay) stamp(c *Client, env *config.Envelope) []byte {
	out := *env
	out.RoomID = c.roomID
	out.PeerID = c.peerID
	return middleware.EncodeMsg(&out)
}

func (rl *Relay) archiveOp(c *Client, op, entityID string, payload []byte) {
	if rl.archive == nil {
		return
	}
	if payload == nil {
		payload = []byte("{}")
	}
	rl.archive.Write(config.ArchiveEvent{
		EventMeta: config.EventMeta{
			Seq:    rl.hub.NextSeq(c.roomID),
			RoomID: c.roomID,
			PeerID: c.peerID,
		},
		EntityID:  entityID,
		Op:        op,
		Payload:   payload,
		CreatedAt: time.Now().UnixMilli(),
	})
}
