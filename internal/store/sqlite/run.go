package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/txstate-etc/mgnl-backup/internal/store"
)

const timeFormat = time.RFC3339Nano

func (d *DB) CreateRun(ctx context.Context, r *store.Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO runs (id, archive_dir, archive_ext, previous_ext, started_at, forced)
		VALUES (?, ?, ?, ?, ?, 0)`,
		r.ID, r.ArchiveDir, r.ArchiveExt, r.PreviousExt,
		r.StartedAt.UTC().Format(timeFormat),
	)
	return err
}

func (d *DB) FinishRun(ctx context.Context, id string, finishedAt time.Time, forced bool) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, forced = ? WHERE id = ?`,
		finishedAt.UTC().Format(timeFormat), boolInt(forced), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) GetRun(ctx context.Context, id string) (*store.Run, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, archive_dir, archive_ext, previous_ext, started_at, finished_at, forced
		FROM runs WHERE id = ?`, id)
	r, err := scanRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return r, err
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, archive_dir, archive_ext, previous_ext, started_at, finished_at, forced
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanRun(scan func(...any) error) (*store.Run, error) {
	var r store.Run
	var started string
	var finished sql.NullString
	var forced int
	if err := scan(&r.ID, &r.ArchiveDir, &r.ArchiveExt, &r.PreviousExt,
		&started, &finished, &forced); err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(timeFormat, started)
	if finished.Valid {
		t, _ := time.Parse(timeFormat, finished.String)
		r.FinishedAt = &t
	}
	r.Forced = forced != 0
	return &r, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
