package ws

import (
	"sync"
	"sync/atomic"
)

// Room is a broadcast domain keyed by its short code. Rooms are created on
// first join and dropped once the last member leaves; there is no explicit
// lifecycle beyond membership.
type Room struct {
	clients map[*Client]bool
	peers   map[string]*Client
	seq     atomic.Int64
}

type Hub struct {
	rooms map[string]*Room
	mu    sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]*Room),
	}
}

// NextSeq stamps archive events with a per-room monotonic sequence.
func (h *Hub) NextSeq(roomID string) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return room.seq.Add(1)
}

// Join registers c in roomID. It reports false for a client that was
// already evicted; its send channel is closed and it must never get back
// into a room map.
func (h *Hub) Join(roomID string, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.evicted {
		return false
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{
			clients: make(map[*Client]bool),
			peers:   make(map[string]*Client),
		}
		h.rooms[roomID] = room
	}

	room.clients[c] = true
	room.peers[c.peerID] = c
	return true
}

func (h *Hub) Leave(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	delete(room.clients, c)
	if room.peers[c.peerID] == c {
		delete(room.peers, c.peerID)
	}
	if len(room.clients) == 0 {
		delete(h.rooms, roomID)
	}
}

// Broadcast sends msg to every member of roomID except `except`. A slow
// client loses its slot rather than stalling the room.
func (h *Hub) Broadcast(roomID string, msg []byte, except *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return
	}

	for c := range room.clients {
		if c != except {
			select {
			case c.send <- msg:
			default:
				c.evicted = true
				close(c.send)
				delete(room.clients, c)
				if room.peers[c.peerID] == c {
					delete(room.peers, c.peerID)
				}
			}
		}
	}
}

// SendToPeer forwards msg to one member of roomID. Unknown targets are
// silently dropped, matching the relay's no-recipient semantics.
func (h *Hub) SendToPeer(roomID, peerID string, msg []byte) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return false
	}

	c, ok := room.peers[peerID]
	if !ok {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// MemberCount reports live membership; zero means the room is gone.
func (h *Hub) MemberCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		return 0
	}
	return len(room.clients)
}
