package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"collabroom/auth"
	"collabroom/db"
	"collabroom/internal/logx"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveExportHandler writes a room's SVG snapshot into the caller's Google
// Drive. The bearer token is the caller's own Drive-scoped OAuth access
// token; the server keeps no Google credentials.
func DriveExportHandler(archive *db.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		if r.Method != http.MethodPost {
			http.Error(w, "Use POST", http.StatusMethodNotAllowed)
			return
		}

		roomID := r.URL.Query().Get("roomId")
		if roomID == "" {
			http.Error(w, "roomId required", http.StatusBadRequest)
			return
		}

		accessToken, err := auth.ReadBearer(r)
		if err != nil {
			http.Error(w, "missing drive token", http.StatusUnauthorized)
			return
		}

		events, err := archive.EventsForRoom(roomID)
		if err != nil {
			logx.From(r.Context()).Error("drive_read", zap.Error(err))
			http.Error(w, "fail to read room history", http.StatusInternalServerError)
			return
		}
		svg := RenderSVG(events)

		svc, err := drive.NewService(r.Context(), option.WithTokenSource(
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}),
		))
		if err != nil {
			http.Error(w, "drive unavailable", http.StatusBadGateway)
			return
		}

		file, err := svc.Files.Create(&drive.File{
			Name:     fmt.Sprintf("room-%s-%d.svg", roomID, time.Now().Unix()),
			MimeType: "image/svg+xml",
		}).Media(bytes.NewReader(svg)).Fields("id", "webViewLink").Do()
		if err != nil {
			logx.From(r.Context()).Error("drive_upload", zap.Error(err))
			http.Error(w, "drive upload failed", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":   file.Id,
			"link": file.WebViewLink,
		})
	}
}
