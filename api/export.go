package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"collabroom/config"
	"collabroom/db"
	"collabroom/internal/logx"
	"collabroom/middleware"
	"go.uber.org/zap"
)

type renderStroke struct {
	frag   config.StrokeFragment
	peerID string
}

// RenderSVG turns a room's archived stroke history into an SVG document.
// A clear op truncates everything before it; eraser strokes paint in the
// canvas background color, same as they do live.
func RenderSVG(events []config.ArchiveEvent) []byte {
	var strokes []renderStroke

	for _, ev := range events {
		switch ev.Op {

		case config.OpClear:
			strokes = strokes[:0]

		case config.OpStroke:
			var frag config.StrokeFragment
			if err := json.Unmarshal(ev.Payload, &frag); err != nil {
				continue
			}
			if len(frag.Points) == 0 {
				continue
			}
			strokes = append(strokes, renderStroke{frag: frag, peerID: ev.PeerID})
		}
	}

	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="100%">`)

	for _, rs := range strokes {
		s := rs.frag
		color := s.Style.Color
		if s.Tool == config.ToolEraser {
			color = "#ffffff"
		}
		if color == "" {
			// Unstyled strokes keep the drawing peer's stable hue.
			if rs.peerID != "" {
				color = middleware.ColorFromPeerID(rs.peerID)
			} else {
				color = "#df4b26"
			}
		}
		width := s.Style.Width
		if width == 0 {
			width = 5
		}

		var d strings.Builder
		for i, p := range s.Points {
			if i == 0 {
				fmt.Fprintf(&d, "M %g %g", p.X, p.Y)
			} else {
				fmt.Fprintf(&d, " L %g %g", p.X, p.Y)
			}
		}

		fmt.Fprintf(&b,
			`<path d="%s" stroke="%s" stroke-width="%g" fill="none" stroke-linecap="round" stroke-linejoin="round"/>`,
			d.String(), color, width,
		)
	}

	b.WriteString(`</svg>`)
	return []byte(b.String())
}

// SnapshotHandler serves the current SVG snapshot of a room's history.
func SnapshotHandler(archive *db.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "roomId required", http.StatusBadRequest)
			return
		}

		events, err := archive.EventsForRoom(roomID)
		if err != nil {
			logx.From(r.Context()).Error("export_read", zap.Error(err))
			http.Error(w, "fail to read room history", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(RenderSVG(events))
	}
}
