package middleware

import (
	"fmt"
	"hash/fnv"
)

// ColorFromPeerID maps a peer identifier to a stable display hue so every
// participant renders the same peer with the same color.
func ColorFromPeerID(peerID string) string {
	h := fnv.New32a()
	h.Write([]byte(peerID))
	hash := h.Sum32()

	hue := int(hash % 360)
	return fmt.Sprintf("hsl(%d, 70%%, 55%%)", hue)
}
