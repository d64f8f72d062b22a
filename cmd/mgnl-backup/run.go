package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/txstate-etc/mgnl-backup/internal/backup"
	"github.com/txstate-etc/mgnl-backup/internal/fetch"
	"github.com/txstate-etc/mgnl-backup/internal/store"
	"github.com/txstate-etc/mgnl-backup/internal/store/sqlite"
)

// workerGrace bounds how long a clean shutdown waits for in-flight exports
// after the coordinator reports the queue drained (or abandoned).
const workerGrace = 30 * time.Second

func cmdRun(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	logger.Info("starting backup", "config", cfg.describe())

	var manifest store.Store
	if cfg.ManifestDB != "" {
		db, err := sqlite.New(ctx, cfg.ManifestDB)
		if err != nil {
			return fmt.Errorf("open manifest db: %w", err)
		}
		defer db.Close()
		manifest = db
	}

	primary, err := fetch.New(cfg.URLs[0])
	if err != nil {
		return fmt.Errorf("primary client: %w", err)
	}

	run := &store.Run{
		ArchiveDir:  cfg.ArchiveDir,
		ArchiveExt:  cfg.ArchiveExt,
		PreviousExt: cfg.PreviousExt,
	}
	if manifest != nil {
		if err := manifest.CreateRun(ctx, run); err != nil {
			logger.Warn("manifest run create failed", "error", err)
			manifest = nil
		} else {
			logger.Info("manifest run created", "run", run.ID)
		}
	}

	// One worker per cluster member; the queue is sized to match so the
	// coordinator stays at most one record per worker ahead.
	queue := backup.NewQueue(len(cfg.URLs))
	var recorder backup.Recorder
	if manifest != nil {
		recorder = manifest
	}

	g := new(errgroup.Group)
	for i, u := range cfg.URLs {
		client, err := fetch.New(u)
		if err != nil {
			return fmt.Errorf("worker %d client: %w", i, err)
		}
		w := &backup.Worker{
			ID:          i,
			Client:      client,
			ArchiveDir:  cfg.ArchiveDir,
			ArchiveExt:  cfg.ArchiveExt,
			PreviousExt: cfg.PreviousExt,
			Backoff:     cfg.Backoff,
			Log:         logger.With("worker", i),
			Recorder:    recorder,
			RunID:       run.ID,
		}
		g.Go(func() error {
			w.Run(ctx, queue)
			return nil
		})
	}

	coord := &backup.Coordinator{
		Client:        primary,
		ArchiveDir:    cfg.ArchiveDir,
		ArchiveExt:    cfg.ArchiveExt,
		Repos:         cfg.repoTypes(),
		Backoff:       cfg.Backoff,
		DrainInterval: cfg.DrainInterval,
		DrainPolls:    cfg.DrainPolls,
		Log:           logger.With("worker", "m"),
	}
	drained := coord.Run(ctx, queue)

	// The drain window is measured on the queue, not on worker liveness:
	// give in-flight exports a short grace and then leave, abandoning
	// stragglers the way the drain policy abandons a stuck queue.
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(workerGrace):
		logger.Warn("exiting with workers still running")
		drained = false
	}

	if manifest != nil {
		if err := manifest.FinishRun(ctx, run.ID, time.Now().UTC(), !drained); err != nil {
			logger.Warn("manifest run finish failed", "run", run.ID, "error", err)
		}
	}
	logger.Info("done", "drained", drained)
	return nil
}
