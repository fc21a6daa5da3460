// Package ingest processes Telegram export files in batch: it discovers
// exports on disk, skips ones already ingested, runs the reconstruction
// pipeline per file and records resumable progress.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/reweave/reweave/internal/processor"
	"github.com/reweave/reweave/internal/telegram"
	"github.com/reweave/reweave/internal/thread"
)

// Config holds the ingest command configuration.
type Config struct {
	Dir          string // directory of export files
	SingleFile   string // process a single file only
	StatePath    string // resumable state location ("" = default)
	ManifestPath string // optional per-group overrides
	DryRun       bool   // process but persist/publish nothing
	MinMessages  int    // skip batches smaller than this
}

// Runner orchestrates the ingest process.
type Runner struct {
	cfg    Config
	opts   thread.Options
	store  processor.ResultStore
	pub    processor.Publisher
	logger *slog.Logger
}

// NewRunner creates an ingest runner. Store and publisher may be nil; the
// runner then only reports what it would have exported.
func NewRunner(cfg Config, opts thread.Options, s processor.ResultStore, pub processor.Publisher, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		opts:   opts,
		store:  s,
		pub:    pub,
		logger: logger,
	}
}

// Run executes the ingest over all discovered export files.
func (r *Runner) Run(ctx context.Context) error {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	var manifest Manifest
	if r.cfg.ManifestPath != "" {
		manifest, err = LoadManifest(r.cfg.ManifestPath)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
	}

	files, err := r.discoverFiles()
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}
	r.logger.Info("export files discovered", "files", len(files))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if state.IsProcessed(path) {
			continue
		}

		msgs, group, err := telegram.ParseExportFile(path)
		if err != nil {
			r.logger.Warn("failed to parse export", "path", path, "error", err)
			state.AddError(fmt.Sprintf("parse %s: %v", path, err))
			continue
		}
		if len(msgs) < r.cfg.MinMessages {
			r.logger.Info("skipping small batch", "path", path, "messages", len(msgs))
			continue
		}

		fp := BuildFingerprint(group, msgs)
		if state.SeenFingerprint(fp.Key()) {
			r.logger.Info("skipping duplicate batch", "path", path, "fingerprint", fp.Key())
			state.MarkProcessed(path, fp.Key())
			continue
		}

		result, err := r.processFile(ctx, group, msgs, manifest)
		if err != nil {
			r.logger.Error("ingest failed", "path", path, "error", err)
			state.AddError(fmt.Sprintf("ingest %s: %v", path, err))
			continue
		}

		state.MarkProcessed(path, fp.Key())
		state.RunsCompleted++
		state.ChunksExported += result.Stats.ChunksExported

		if err := state.Save(); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	r.logger.Info("ingest complete",
		"runs", state.RunsCompleted,
		"chunks", state.ChunksExported,
		"errors", len(state.Errors),
	)
	return state.Save()
}

func (r *Runner) processFile(ctx context.Context, group thread.GroupInfo, msgs []thread.Message, manifest Manifest) (thread.Result, error) {
	opts := manifest.OptionsFor(group.GroupID, r.opts)

	store, pub := r.store, r.pub
	if r.cfg.DryRun {
		store, pub = nil, nil
	}

	proc := processor.New(store, pub, opts, r.logger)
	return proc.ProcessBatch(ctx, processor.BatchEvent{Group: group, Messages: msgs})
}

// discoverFiles lists the export files to process, sorted for deterministic
// ordering.
func (r *Runner) discoverFiles() ([]string, error) {
	if r.cfg.SingleFile != "" {
		return []string{r.cfg.SingleFile}, nil
	}
	if r.cfg.Dir == "" {
		return nil, fmt.Errorf("no ingest directory or file configured")
	}

	entries, err := os.ReadDir(r.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(r.cfg.Dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
