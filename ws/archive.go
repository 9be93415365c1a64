package ws

import (
	"sync"
	"time"

	"collabroom/config"
	"collabroom/middleware"
)

type pendingStroke struct {
	frag config.StrokeFragment
	meta config.EventMeta
}

// strokeBuffer owns every in-flight stroke until its end fragment arrives.
// Only the buffer appends to a pending stroke's points; once flushed the
// stroke is immutable archive history.
type strokeBuffer struct {
	pending map[string]*pendingStroke
	mu      sync.Mutex
}

func newStrokeBuffer() *strokeBuffer {
	return &strokeBuffer{
		pending: make(map[string]*pendingStroke),
	}
}

func (rl *Relay) archiveStroke(c *Client, frag *config.StrokeFragment) {
	if rl.archive == nil {
		return
	}

	switch frag.Phase {

	case config.StrokeStart:
		meta := config.EventMeta{
			Seq:    rl.hub.NextSeq(c.roomID),
			RoomID: c.roomID,
			PeerID: c.peerID,
		}

		rl.strokes.mu.Lock()
		defer rl.strokes.mu.Unlock()

		p := &pendingStroke{frag: *frag, meta: meta}
		p.frag.Points = append([]config.Point(nil), frag.Points...)
		rl.strokes.pending[frag.ID] = p

	case config.StrokeAppend:
		rl.strokes.mu.Lock()
		defer rl.strokes.mu.Unlock()

		p, ok := rl.strokes.pending[frag.ID]
		if !ok {
			return
		}
		p.frag.Points = append(p.frag.Points, frag.Points...)

	case config.StrokeEnd:
		rl.strokes.mu.Lock()
		p, ok := rl.strokes.pending[frag.ID]
		if ok {
			delete(rl.strokes.pending, frag.ID)
		}
		rl.strokes.mu.Unlock()

		if !ok {
			return
		}
		if len(frag.Points) > 0 {
			p.frag.Points = append(p.frag.Points, frag.Points...)
		}

		// flush the finalized stroke as one archive row
		p.frag.Phase = config.StrokeEnd
		rl.archive.Write(config.ArchiveEvent{
			EventMeta: p.meta,
			EntityID:  p.frag.ID,
			Op:        config.OpStroke,
			Payload:   middleware.EncodeMsg(&p.frag),
			CreatedAt: time.Now().UnixMilli(),
		})
	}
}
