package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/medtrack/internal/config"
	"github.com/dukerupert/medtrack/internal/database"
	"github.com/dukerupert/medtrack/internal/logging"
	"github.com/dukerupert/medtrack/internal/server"
	"github.com/dukerupert/medtrack/internal/store"
	"github.com/dukerupert/medtrack/internal/tracker"
	ws "github.com/dukerupert/medtrack/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("")
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel)

	backend, db, err := openBackend(cfg)
	if err != nil {
		slog.Error("open storage", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	var sealer *store.Sealer
	if cfg.Sealed() {
		sealer, err = store.NewSealer(cfg.Passphrase)
		if err != nil {
			slog.Error("init sealer", "error", err)
			os.Exit(1)
		}
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	medStore := store.NewMedicationStore(backend, sealer)
	tr := tracker.New(medStore, hub.MedicationChanged, logger.With("component", "tracker"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed load starts the session empty; the next save overwrites it.
	if err := tr.Open(ctx); err != nil {
		slog.Warn("load medications", "kind", store.Kind(err), "error", err)
	}
	slog.Info("medications loaded", "count", len(tr.Medications()), "store", cfg.Store, "sealed", cfg.Sealed())
	tr.Start(ctx)

	srv := server.New(tr, hub, cfg.WriteLimit, logger)
	go srv.RateLimiter().RunCleanup(ctx, 10*time.Minute)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("medtrack starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	cancel()
	tr.Stop()
}

// openBackend returns the configured blob store. db is non-nil only for the
// sqlite backend and must be closed by the caller.
func openBackend(cfg config.Config) (store.Backend, *sql.DB, error) {
	if cfg.Store == config.StoreS3 {
		return store.NewS3Store(cfg.S3), nil, nil
	}
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return store.NewKVStore(db), db, nil
}
