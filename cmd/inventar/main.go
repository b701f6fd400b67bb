package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/logging"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/web"
)

// backend is an opened document and blob store pair plus whatever has to be
// closed on shutdown.
type backend struct {
	doc   store.Document
	blobs blob.Store
	close func()
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := logging.New(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, logger); err != nil {
		logger.Errorw("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	b, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer b.close()

	blobs := b.blobs
	if cfg.PhotoCacheAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.PhotoCacheAddr})
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to photo cache at %s: %w", cfg.PhotoCacheAddr, err)
		}
		blobs = blob.NewCached(blobs, client, cfg.PhotoCacheTTL, logger)
		logger.Infow("photo cache enabled", "addr", cfg.PhotoCacheAddr, "ttl", cfg.PhotoCacheTTL)
	}

	inv, err := store.Open(context.Background(), b.doc, blobs, logger)
	if err != nil {
		return fmt.Errorf("opening inventory: %w", err)
	}
	stats := inv.Stats()
	logger.Infow("inventory ready", "backend", cfg.Backend, "data", cfg.DataDir, "items", stats.Items, "next_id", stats.NextID)

	apiRouter := api.NewRouter(inv, logger, cfg.MaxPhotoBytes())
	webRouter, err := web.NewRouter(inv, logger, cfg.MaxPhotoBytes())
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           middleware.RequestID(api.LoggingMiddleware(logger)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		logger.Infow("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("server forced to shutdown", "error", err)
		}
	}()

	logger.Infow("server started", "addr", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving: %w", err)
	}

	logger.Infow("server stopped")
	return nil
}

func openBackend(cfg *config.Config) (*backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := db.Migrate(database); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return &backend{
			doc:   store.NewSQLiteDocument(database),
			blobs: blob.NewSQLite(database),
			close: closer(database),
		}, nil
	default:
		blobs, err := blob.NewFS(cfg.PhotoDir())
		if err != nil {
			return nil, fmt.Errorf("opening photo directory: %w", err)
		}
		return &backend{
			doc:   store.NewFileDocument(cfg.DocumentPath()),
			blobs: blobs,
			close: func() {},
		}, nil
	}
}

func closer(database *sql.DB) func() {
	return func() { database.Close() }
}
