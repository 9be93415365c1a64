package main

import (
	"context"
	"encoding/json"
	"net/http"

	"collabroom/api"
	"collabroom/auth"
	"collabroom/config"
	"collabroom/db"
	"collabroom/internal/logx"
	"collabroom/middleware"
	"collabroom/ws"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.FromEnv()
	logx.Init()
	defer logx.L.Sync()

	archive, err := db.NewArchive(cfg.ArchivePath)
	if err != nil {
		logx.L.Fatal("archive_open", zap.Error(err))
	}
	defer archive.Close()

	relay := ws.NewRelay(archive)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", relay.HandleWS)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.Handle("/auth/session", auth.HandleSession())
	mux.Handle("/auth/token", auth.HandleToken())
	mux.Handle("/api/export/svg", middleware.RequireSession(api.SnapshotHandler(archive)))
	mux.Handle("/api/export/drive", middleware.RequireSession(api.DriveExportHandler(archive)))

	if cfg.ShareBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
		if err != nil {
			logx.L.Fatal("aws_config", zap.Error(err))
		}
		presign := s3.NewPresignClient(s3.NewFromConfig(awsCfg))
		mux.Handle("/api/export/share", middleware.RequireSession(api.ShareHandler(presign, cfg.ShareBucket)))
		mux.Handle("/api/export/shared", middleware.RequireSession(api.SharedObjectHandler(presign, cfg.ShareBucket)))
	}

	handler := middleware.Logging(middleware.CORS(cfg.AllowOrigin)(mux))

	logx.L.Info("relay_listening", zap.String("addr", cfg.Addr))
	logx.L.Fatal("server_exit", zap.Error(http.ListenAndServe(cfg.Addr, handler)))
}
