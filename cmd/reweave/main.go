package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reweave/reweave/internal/api"
	"github.com/reweave/reweave/internal/bus"
	"github.com/reweave/reweave/internal/config"
	"github.com/reweave/reweave/internal/ingest"
	"github.com/reweave/reweave/internal/processor"
	"github.com/reweave/reweave/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if len(os.Args) > 1 && os.Args[1] == "ingest" {
		os.Exit(runIngest(cfg, os.Args[2:]))
	}

	runService(cfg)
}

func runService(cfg config.Config) {
	slog.Info("reweave starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	slog.Info("database connected")

	// NATS
	busClient, err := bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer busClient.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Processor — the main pipeline
	proc := processor.New(db, busClient, cfg.Options(), slog.Default())

	// Subscribe to incoming batches
	if err := busClient.Subscribe(bus.SubjectBatchStored, proc.HandleBatchStored); err != nil {
		slog.Error("failed to subscribe to batch events", "error", err)
		os.Exit(1)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, proc, db)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if err := busClient.Publish(bus.SubjectRegistered, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"port":      cfg.Port,
	}); err != nil {
		slog.Warn("failed to publish registration", "error", err)
	}

	slog.Info("reweave ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("reweave stopped")
}

func runIngest(cfg config.Config, args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var icfg ingest.Config
	fs.StringVar(&icfg.Dir, "dir", "", "directory of Telegram export files")
	fs.StringVar(&icfg.SingleFile, "file", "", "process a single export file")
	fs.StringVar(&icfg.StatePath, "state", "", "ingest state file (default ~/.reweave/ingest-state.json)")
	fs.StringVar(&icfg.ManifestPath, "manifest", "", "optional YAML group manifest")
	fs.BoolVar(&icfg.DryRun, "dry-run", false, "process without persisting or publishing")
	fs.IntVar(&icfg.MinMessages, "min-messages", 2, "skip batches with fewer messages")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		db  *store.Store
		pub *bus.Client
		err error
	)
	if !icfg.DryRun {
		if cfg.DatabaseURL != "" {
			db, err = store.New(ctx, cfg.DatabaseURL)
			if err != nil {
				slog.Error("failed to connect to database", "error", err)
				return 1
			}
			defer db.Close()
			if err := db.EnsureSchema(ctx); err != nil {
				slog.Error("failed to ensure schema", "error", err)
				return 1
			}
		} else {
			slog.Warn("no DATABASE_URL — chunks will not be persisted")
		}
		if cfg.NatsURL != "" {
			pub, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
			if err != nil {
				slog.Warn("NATS unavailable — export events will not be published", "error", err)
				pub = nil
			} else {
				defer pub.Close()
			}
		}
	}

	// Interface values must stay nil when the concrete pointers are nil.
	var resultStore processor.ResultStore
	if db != nil {
		resultStore = db
	}
	var publisher processor.Publisher
	if pub != nil {
		publisher = pub
	}

	runner := ingest.NewRunner(icfg, cfg.Options(), resultStore, publisher, slog.Default())
	if err := runner.Run(ctx); err != nil {
		slog.Error("ingest failed", "error", err)
		return 1
	}
	return 0
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
