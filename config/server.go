package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Server holds the process configuration. Everything comes from the
// environment; a .env file is honored when present.
type Server struct {
	Addr        string
	ArchivePath string
	ShareBucket string
	AllowOrigin string
}

func FromEnv() Server {
	_ = godotenv.Load()

	return Server{
		Addr:        envOr("ADDR", ":8080"),
		ArchivePath: envOr("ARCHIVE_PATH", "collabroom.db"),
		ShareBucket: os.Getenv("SHARE_BUCKET"),
		AllowOrigin: envOr("ALLOW_ORIGIN", "http://localhost:3000"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
