package client

import (
	"sync"

	"collabroom/config"
	"github.com/google/uuid"
)

// Stroke is one continuous pen gesture. While open it is owned exclusively
// by the log and extended point by point; EndStroke freezes it.
type Stroke struct {
	ID     string
	Tool   string
	Style  config.StrokeStyle
	Points []config.Point
	Final  bool
}

// CanvasLog is the ordered stroke log of one client. Local strokes are
// appended optimistically and every fragment is emitted so peers watch the
// stroke grow; remote fragments merge by stroke id. Insertion order is
// local causal order interleaved with remote arrival order and is never
// changed afterwards.
type CanvasLog struct {
	mu      sync.Mutex
	strokes []*Stroke
	open    map[string]*Stroke
	emit    Emitter
}

func NewCanvasLog(emit Emitter) *CanvasLog {
	return &CanvasLog{
		open: make(map[string]*Stroke),
		emit: emit,
	}
}

// BeginStroke opens a new local stroke at point and returns its id.
func (l *CanvasLog) BeginStroke(p config.Point, style config.StrokeStyle, tool string) string {
	id := uuid.NewString()

	l.mu.Lock()
	s := &Stroke{
		ID:     id,
		Tool:   tool,
		Style:  style,
		Points: []config.Point{p},
	}
	l.strokes = append(l.strokes, s)
	l.open[id] = s
	l.mu.Unlock()

	l.send(&config.StrokeFragment{
		ID:     id,
		Phase:  config.StrokeStart,
		Tool:   tool,
		Style:  style,
		Points: []config.Point{p},
	})
	return id
}

// AppendPoint extends an open local stroke. Unknown or finalized ids are
// ignored.
func (l *CanvasLog) AppendPoint(id string, p config.Point) {
	l.mu.Lock()
	s, ok := l.open[id]
	if ok {
		s.Points = append(s.Points, p)
	}
	l.mu.Unlock()

	if !ok {
		return
	}
	l.send(&config.StrokeFragment{
		ID:     id,
		Phase:  config.StrokeAppend,
		Points: []config.Point{p},
	})
}

// EndStroke finalizes an open local stroke; afterwards it is immutable.
func (l *CanvasLog) EndStroke(id string) {
	l.mu.Lock()
	s, ok := l.open[id]
	if ok {
		s.Final = true
		delete(l.open, id)
	}
	l.mu.Unlock()

	if !ok {
		return
	}
	l.send(&config.StrokeFragment{
		ID:    id,
		Phase: config.StrokeEnd,
	})
}

// ReceiveRemote merges one remote fragment into the log. A start for a
// known id is a duplicate and dropped; an append for an unknown id opens
// the stroke so a join mid-stroke still yields exactly one entry.
func (l *CanvasLog) ReceiveRemote(frag *config.StrokeFragment) {
	if frag == nil || frag.ID == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch frag.Phase {

	case config.StrokeStart:
		if _, exists := l.open[frag.ID]; exists {
			return
		}
		if l.finalized(frag.ID) {
			return
		}
		l.append(frag)

	case config.StrokeAppend:
		s, ok := l.open[frag.ID]
		if !ok {
			if l.finalized(frag.ID) {
				return
			}
			l.append(frag)
			return
		}
		s.Points = append(s.Points, frag.Points...)

	case config.StrokeEnd:
		s, ok := l.open[frag.ID]
		if !ok {
			return
		}
		s.Points = append(s.Points, frag.Points...)
		s.Final = true
		delete(l.open, frag.ID)
	}
}

// ClearAll truncates the log. Idempotent; triggered for every participant
// by the relay's clear broadcast.
func (l *CanvasLog) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.strokes = nil
	l.open = make(map[string]*Stroke)
}

// Strokes returns a point-deep snapshot for rendering and export.
func (l *CanvasLog) Strokes() []Stroke {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Stroke, len(l.strokes))
	for i, s := range l.strokes {
		out[i] = *s
		out[i].Points = append([]config.Point(nil), s.Points...)
	}
	return out
}

func (l *CanvasLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.strokes)
}

func (l *CanvasLog) append(frag *config.StrokeFragment) {
	s := &Stroke{
		ID:     frag.ID,
		Tool:   frag.Tool,
		Style:  frag.Style,
		Points: append([]config.Point(nil), frag.Points...),
	}
	l.strokes = append(l.strokes, s)
	l.open[frag.ID] = s
}

// finalized reports whether id already finished; late fragments for it are
// stale echoes, not new strokes.
func (l *CanvasLog) finalized(id string) bool {
	for _, s := range l.strokes {
		if s.ID == id {
			return s.Final
		}
	}
	return false
}

func (l *CanvasLog) send(frag *config.StrokeFragment) {
	if l.emit == nil {
		return
	}
	// Relay errors never surface to the drawing path.
	_ = l.emit.Send(&config.Envelope{
		Event:  config.EvCanvasData,
		Stroke: frag,
	})
}
