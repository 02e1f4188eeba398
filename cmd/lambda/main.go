package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"bookstore-voice/internal/bootstrap"
	"bookstore-voice/internal/config"
	"bookstore-voice/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(os.Getenv("BOOKSTORE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	log := logging.InitLogger(os.Stdout, level)

	// ---- Handler ----
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build application", "err", err)
		os.Exit(1)
	}

	lambda.StartWithOptions(app.Handler.Handle, lambda.WithEnableSIGTERM(func() {
		if err := app.Shutdown(context.Background()); err != nil {
			log.Error("failed to flush traces", "err", err)
		}
	}))
}
