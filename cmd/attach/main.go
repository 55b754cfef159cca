package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/attachkeeper/internal/client/cli"
	"github.com/dmitrijs2005/attachkeeper/internal/client/config"
	"github.com/dmitrijs2005/attachkeeper/internal/filex"
	"github.com/dmitrijs2005/attachkeeper/internal/logging"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; it feeds AWS_* and MINIO_* credentials.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.NewTextLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if cfg.OutputDir != "" {
		cfg.OutputDir, err = filex.EnsureSubdDir(cfg.OutputDir)
		if err != nil {
			log.Fatalf("output dir: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	app.Run(ctx, os.Stdin)
}
