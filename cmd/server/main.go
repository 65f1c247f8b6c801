// Package main provides the entry point for the signalstore server: a
// single-process embeddable observability store exposing ingestion,
// query, and live subscription over HTTP/websocket.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"signalstore/internal/archive"
	"signalstore/internal/config"
	"signalstore/internal/engine"
	"signalstore/internal/httpapi"
	"signalstore/internal/iterx"
	"signalstore/internal/storage"
	"signalstore/internal/version"
	"signalstore/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.NewLoggerWithFormat(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logger.Info("starting signalstore", "version", version.Get())

	iterx.SetExpansionFactor(cfg.Engine.GallopExpansionFactor)

	store, closeStore, err := openStorage(&cfg.Storage, cfg.Engine.CacheCapacity)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	ctx := context.Background()
	sync, err := engine.NewSyncEngine(ctx, store, logger)
	if err != nil {
		log.Fatalf("failed to build engine: %v", err)
	}

	exporter := attachArchiver(sync, &cfg.Storage, logger)
	if exporter != nil {
		exporter.Start()
		defer exporter.Stop()
	}

	async := engine.NewAsyncEngine(sync, cfg.Engine.CommandBufferSize)
	defer async.Stop()

	server := httpapi.NewServer(cfg.Server, async, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("server failed: %v", err)
	case <-quit:
		fmt.Println("shutting down signalstore...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	fmt.Println("signalstore stopped")
}

// openStorage builds the storage backend StorageConfig.TransientOnly
// selects, wrapped in a per-kind LRU read cache sized by
// EngineConfig.CacheCapacity (cheap over the in-memory transient backend,
// and the point of the cache over the Badger-backed persistent one). The
// returned func closes the backend; it is a no-op for the transient
// backend, which holds no file handles.
func openStorage(cfg *config.StorageConfig, cacheCapacity int) (storage.Storage, func(), error) {
	if cfg.TransientOnly {
		return storage.NewCached(storage.NewTransient(), cacheCapacity), func() {}, nil
	}

	persistent, err := storage.OpenPersistentWithSync(cfg.ArchivePath, cfg.ArchiveFsync)
	if err != nil {
		return nil, nil, fmt.Errorf("open persistent archive at %q: %w", cfg.ArchivePath, err)
	}
	closeFn := func() {
		if err := persistent.Close(); err != nil {
			log.Printf("error closing archive: %v", err)
		}
	}
	return storage.NewCached(persistent, cacheCapacity), closeFn, nil
}

// attachArchiver wires a background Parquet exporter onto sync when cold
// storage is enabled, returning nil otherwise so the caller knows there's
// nothing to Start/Stop.
func attachArchiver(sync *engine.SyncEngine, cfg *config.StorageConfig, logger *slog.Logger) *archive.Exporter {
	if !cfg.ColdStorageEnabled {
		return nil
	}
	exporter := archive.NewExporter(cfg.ColdStoragePath, cfg.ColdStorageCompressionLevel, cfg.ColdStorageFlushInterval, logger)
	sync.AttachArchiver(exporter)
	return exporter
}
