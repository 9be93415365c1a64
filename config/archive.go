package config

import (
	"encoding/json"
)

// Archive ops written to the event log.
const (
	OpStroke = "stroke"
	OpClear  = "clear"
	OpCode   = "code"
	OpChat   = "chat"
)

type EventMeta struct {
	Seq    int64  `json:"seq"`
	RoomID string `json:"roomId"`
	PeerID string `json:"peerId"`
}

// ArchiveEvent is one row of the append-only room history used by the
// export surface. It is never read back into live room state.
type ArchiveEvent struct {
	EventMeta

	EntityID string `json:"entityId"`
	Op       string `json:"op"`

	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"ts"`
}
