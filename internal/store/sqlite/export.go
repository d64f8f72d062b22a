package sqlite

import (
	"context"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/store"
)

func (d *DB) RecordExport(ctx context.Context, e *store.Export) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO exports (run_id, repo, path, outcome, bytes, worker, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Repo, e.Path, e.Outcome, e.Bytes, e.Worker, e.Error,
		e.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return err
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

func (d *DB) CountExports(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM exports WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
