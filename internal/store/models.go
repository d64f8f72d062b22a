package store

import "time"

// Export outcomes.
const (
	OutcomeLinked   = "linked"   // hard-linked from the previous day's archive
	OutcomeExported = "exported" // full export downloaded
	OutcomeSkipped  = "skipped"  // dropped per the skip/backoff policy
	OutcomeFailed   = "failed"   // filesystem or blocking failure
)

// Run is one backup invocation.
type Run struct {
	ID          string
	ArchiveDir  string
	ArchiveExt  string
	PreviousExt string
	StartedAt   time.Time
	FinishedAt  *time.Time
	Forced      bool // drain window expired with records still queued
}

// Export is the recorded outcome of one path record.
type Export struct {
	ID        int64
	RunID     string
	Repo      string
	Path      string
	Outcome   string
	Bytes     int64
	Worker    int
	Error     string
	CreatedAt time.Time
}
