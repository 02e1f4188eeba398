package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"

	"bookstore-voice/internal/bootstrap"
	"bookstore-voice/internal/config"
	"bookstore-voice/internal/logging"
)

const bannerTemplate = "{{ .Title \"BOOKSTORE\" \"\" 0 }}\nVoice webhook, started {{ .Now \"2006-01-02 15:04:05\" }}\n"

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// ---- Configuration ----
	cfg, err := config.Load(os.Getenv("BOOKSTORE_CONFIG"))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	level, _ := cfg.Log.SlogLevel()
	log := logging.InitLogger(os.Stdout, level)

	banner.Init(os.Stdout, true, false, bytes.NewBufferString(bannerTemplate))

	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// run serves until ctx is cancelled or the listener fails. It returns the
// listener error, if any, after shutting the server down and flushing spans.
func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	// ---- Dependencies ----
	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}

	// ---- Server ----
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shut down server", "err", err)
	}
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to flush traces", "err", err)
	}
	return serveErr
}
