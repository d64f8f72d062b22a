// Package store defines the backup manifest: one Run row per invocation and
// one Export row per processed path, so operators can ask what yesterday's
// run actually did.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the manifest data access interface.
type Store interface {
	CreateRun(ctx context.Context, r *Run) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, forced bool) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	RecordExport(ctx context.Context, e *Export) error
	CountExports(ctx context.Context, runID string) (map[string]int, error)

	Ping(ctx context.Context) error
	Close() error
}
