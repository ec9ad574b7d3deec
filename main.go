package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blockpad/internal/api"
	"blockpad/internal/backup"
	"blockpad/internal/config"
	"blockpad/internal/domain"
	"blockpad/internal/editor"
	"blockpad/internal/events"
	"blockpad/internal/httpstore"
	mcpserver "blockpad/internal/mcp"
	"blockpad/internal/storage"
)

func main() {
	configPath := flag.String("config", "blockpad.yaml", "config file path")
	mcpMode := flag.Bool("mcp", false, "serve the editor as MCP tools on stdin/stdout instead of running the HTTP server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *mcpMode {
		if err := runMCP(ctx, cfg); err != nil {
			log.Fatalf("mcp: %v", err)
		}
		return
	}
	if err := runServer(ctx, cfg, *configPath); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// runServer hosts the HTTP CRUD surface plus the websocket event
// stream, with optional scheduled backups and live config reload.
func runServer(ctx context.Context, cfg *config.Config, configPath string) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := events.NewHub()
	defer hub.Close()

	var snapshots *backup.Service
	if cfg.Backup.Enabled {
		snapshots = backup.New(store, cfg.Backup.Dir)
		if err := snapshots.Start(cfg.Backup.Schedule); err != nil {
			return fmt.Errorf("start backups: %w", err)
		}
		defer snapshots.Stop()
	}

	// Live-reapply the backup schedule when the config file changes.
	if err := config.Watch(ctx, configPath, func(next *config.Config) {
		if snapshots == nil {
			return
		}
		if next.Backup.Enabled {
			if err := snapshots.Restart(next.Backup.Schedule); err != nil {
				log.Printf("config: backup schedule not applied: %v", err)
			}
		} else {
			snapshots.Stop()
		}
	}); err != nil {
		log.Printf("config: watch disabled: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewServer(store, hub).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("blockpad listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runMCP drives the edit controller over stdio tools. With
// editor.remote_url set it edits a running server through the HTTP
// store; otherwise it opens the local store directly.
func runMCP(ctx context.Context, cfg *config.Config) error {
	var store domain.BlockStore
	var closeStore func()
	var err error

	if cfg.Editor.RemoteURL != "" {
		store = httpstore.New(cfg.Editor.RemoteURL)
		closeStore = func() {}
	} else {
		store, closeStore, err = openStore(ctx, cfg)
		if err != nil {
			return err
		}
	}
	defer closeStore()

	ed := editor.New(store, cfg.Editor.DebounceDelay)
	if err := ed.Load(ctx); err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	defer ed.Close()

	if err := mcpserver.New(ed).ServeStdio(); err != nil {
		return fmt.Errorf("serve stdio: %w", err)
	}

	// Save-before-exit: don't lose the tail of the debounce window.
	if err := ed.Flush(); err != nil {
		log.Printf("mcp: final flush: %v", err)
	}
	return nil
}

// openStore builds the configured BlockStore and its closer.
func openStore(ctx context.Context, cfg *config.Config) (domain.BlockStore, func(), error) {
	switch cfg.Store.Driver {
	case storage.DriverMongo:
		ms, err := storage.NewMongoStore(ctx, cfg.Store.DSN, cfg.Store.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("open mongo store: %w", err)
		}
		return ms, func() {
			if err := ms.Close(context.Background()); err != nil {
				log.Printf("close mongo: %v", err)
			}
		}, nil
	case storage.DriverSQLite:
		db, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return storage.NewSQLStore(db), func() { db.Close() }, nil
	default:
		db, err := storage.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return storage.NewSQLStore(db), func() { db.Close() }, nil
	}
}
