package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/txstate-etc/mgnl-backup/internal/store"
	"github.com/txstate-etc/mgnl-backup/internal/store/sqlite"
)

// cmdStatus prints the most recent runs from the manifest with their
// per-outcome export counts.
func cmdStatus() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ManifestDB == "" {
		return errors.New("no manifest database configured (set MGNL_BACKUP_DB or manifest_db)")
	}

	ctx := context.Background()
	db, err := sqlite.New(ctx, cfg.ManifestDB)
	if err != nil {
		return fmt.Errorf("open manifest db: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, 10)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range runs {
		counts, err := db.CountExports(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("count exports for %s: %w", r.ID, err)
		}
		fmt.Printf("%s  ext=%s  started=%s  %s\n", r.ID, r.ArchiveExt,
			r.StartedAt.Format("2006-01-02 15:04:05"), runState(r))
		fmt.Printf("    linked=%d exported=%d skipped=%d failed=%d\n",
			counts[store.OutcomeLinked], counts[store.OutcomeExported],
			counts[store.OutcomeSkipped], counts[store.OutcomeFailed])
	}
	return nil
}

func runState(r store.Run) string {
	switch {
	case r.FinishedAt == nil:
		return "running"
	case r.Forced:
		return "forced"
	default:
		return "finished"
	}
}
