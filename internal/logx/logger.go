package logx

import (
	"os"

	"go.uber.org/zap"
)

var L *zap.Logger

// Init builds the process logger. Production JSON when ENV=prod, console
// output otherwise so relay traffic is readable during local runs.
func Init() {
	cfg := zap.NewProductionConfig()
	if os.Getenv("ENV") != "prod" {
		cfg = zap.NewDevelopmentConfig()
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	L = logger.Named("collabroom")
}
