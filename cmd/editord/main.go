package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aravindmodala/Bookology-sub001/internal/api"
	"github.com/Aravindmodala/Bookology-sub001/internal/config"
	"github.com/Aravindmodala/Bookology-sub001/internal/media"
	"github.com/Aravindmodala/Bookology-sub001/internal/persist"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// External collaborators.
	backend := persist.NewClient(cfg.StoryAPIURL, cfg.StoryAPIKey)
	uploader := media.NewUploader(cfg.UploadURL, cfg.UploadKey)

	// Session registry with eviction and deferred-replacement tickers.
	store := api.NewSessionStore(cfg.SessionTTL, log)
	store.Start(ctx)

	srv := api.NewServer(backend, uploader, store, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: stop accepting work, then flush save queues.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		store.Stop()
		uploader.Close()
		backend.Close()
	}()

	log.Info("starting editord", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
