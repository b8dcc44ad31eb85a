package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/novel-engine/internal/config"
	"github.com/jwebster45206/novel-engine/internal/handlers"
	"github.com/jwebster45206/novel-engine/internal/logger"
	"github.com/jwebster45206/novel-engine/internal/middleware"
	"github.com/jwebster45206/novel-engine/internal/services/events"
	"github.com/jwebster45206/novel-engine/internal/session"
	"github.com/jwebster45206/novel-engine/internal/storage"
	pkgstorage "github.com/jwebster45206/novel-engine/pkg/storage"
	"github.com/jwebster45206/novel-engine/pkg/story"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Novel Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"content_dir", cfg.ContentDir)

	content, err := story.NewLoader(cfg.ContentDir).Store()
	if err != nil {
		log.Error("Failed to load story content", "error", err, "content_dir", cfg.ContentDir)
		os.Exit(1)
	}
	log.Info("Story content loaded",
		"scenes", len(content.SceneIDs()),
		"chapters", len(content.Chapters()),
		"opening_scene", content.OpeningScene().ID)

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	var (
		store     pkgstorage.Storage
		publisher events.Publisher
	)
	switch cfg.StorageBackend {
	case config.StorageRedis:
		redisStore, err := storage.NewRedisStorage(cfg.RedisURL, log)
		if err != nil {
			log.Error("Failed to create Redis storage", "error", err)
			os.Exit(1)
		}
		if err := redisStore.WaitForConnection(storageCtx); err != nil {
			log.Error("Failed to connect to storage", "error", err)
			os.Exit(1)
		}
		store = redisStore
		publisher = events.NewBroadcaster(redisStore.Client(), log)
	case config.StorageSQLite:
		sqliteStore, err := storage.NewSQLiteStorage(storageCtx, cfg.SQLitePath, log)
		if err != nil {
			log.Error("Failed to open SQLite storage", "error", err, "path", cfg.SQLitePath)
			os.Exit(1)
		}
		store = sqliteStore
		publisher = events.NewLogPublisher(log)
	}
	log.Info("Storage connection established successfully")

	sessions := session.NewService(content, store, publisher, cfg.MaxSaveSlots, log)
	mux := handlers.NewRouter(sessions, store, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      middleware.Logger(log, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
