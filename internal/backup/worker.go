package backup

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/archive"
	"github.com/txstate-etc/mgnl-backup/internal/fetch"
	"github.com/txstate-etc/mgnl-backup/internal/nodes"
	"github.com/txstate-etc/mgnl-backup/internal/store"
)

const defaultBackoff = 15 * time.Second

// Recorder receives the per-path outcomes of a run. A nil Recorder disables
// manifest recording.
type Recorder interface {
	RecordExport(ctx context.Context, e *store.Export) error
}

// Worker drains the shared path queue against one cluster member. Each
// worker exclusively owns its fetch.Client; session recovery happens on the
// worker's own goroutine.
type Worker struct {
	ID          int
	Client      *fetch.Client
	ArchiveDir  string
	ArchiveExt  string
	PreviousExt string
	Backoff     time.Duration // defaults to 15s
	Log         *slog.Logger
	Recorder    Recorder
	RunID       string
}

// Run consumes path records until the queue closes or the worker hits a
// terminating error (blocking response or failed session renewal).
func (w *Worker) Run(ctx context.Context, queue *Queue) {
	for {
		p, ok := queue.dequeue()
		if !ok {
			return
		}
		if !w.process(ctx, p) {
			w.log().Warn("worker terminated", "path", p.Path)
			return
		}
	}
}

// process handles one path record. A false return retires the worker.
func (w *Worker) process(ctx context.Context, p nodes.PathInfo) bool {
	previousFile := archive.File(w.ArchiveDir, w.PreviousExt, p)
	archiveFile := archive.File(w.ArchiveDir, w.ArchiveExt, p)

	if w.linkUnchanged(ctx, p, previousFile, archiveFile) {
		return true
	}
	return w.export(ctx, p, archiveFile)
}

// linkUnchanged applies the previous-day shortcut: when yesterday's file
// exists with an mtime matching the node's lastModified, hard-link it into
// today's archive instead of re-downloading. A true return means the record
// is done, link errors included; they are logged and the run moves on.
func (w *Worker) linkUnchanged(ctx context.Context, p nodes.PathInfo, previousFile, archiveFile string) bool {
	if p.LastModified == nil {
		return false
	}
	info, err := os.Stat(previousFile)
	if err != nil {
		return false
	}
	// Compare at millisecond precision: Magnolia timestamps only carry
	// milliseconds and filesystem mtime resolution varies.
	if !info.ModTime().Truncate(time.Millisecond).Equal(p.LastModified.Truncate(time.Millisecond)) {
		return false
	}

	if err := os.Link(previousFile, archiveFile); err != nil {
		w.log().Error("hard link failed", "path", p.Path, "error", err)
		w.record(ctx, p, store.OutcomeFailed, 0, err)
		return true
	}
	if err := os.Chtimes(archiveFile, *p.LastModified, *p.LastModified); err != nil {
		w.log().Error("set file times failed", "path", p.Path, "error", err)
	}
	w.record(ctx, p, store.OutcomeLinked, info.Size(), nil)
	return true
}

// export downloads the node's XML into archiveFile under the retry policy:
// lost session renews and retries, backoff pauses, renews, and skips,
// blocking retires the worker, anything else skips the record.
func (w *Worker) export(ctx context.Context, p nodes.PathInfo, archiveFile string) bool {
	file, err := os.Create(archiveFile)
	if err != nil {
		w.log().Error("create archive file failed", "path", p.Path, "error", err)
		w.record(ctx, p, store.OutcomeFailed, 0, err)
		return true
	}
	defer file.Close()

	for {
		body, err := w.Client.Export(ctx, p)
		if err == nil {
			return w.save(ctx, p, archiveFile, file, body)
		}

		switch fetch.KindOf(err) {
		case fetch.KindLostSession:
			w.log().Warn("lost session", "path", p.Path, "session", w.Client.Session(), "error", err)
			if rerr := w.Client.Renew(); rerr != nil {
				w.log().Error("session renewal failed", "path", p.Path, "error", rerr)
				w.record(ctx, p, store.OutcomeFailed, 0, rerr)
				return false
			}
		case fetch.KindBackoff:
			w.log().Warn("backing off", "path", p.Path, "session", w.Client.Session(), "error", err)
			time.Sleep(w.backoff())
			// Magnolia cannot resume its persistent connection after a
			// server error, and retrying the same request historically kept
			// producing 500s while filling the server's temp directory:
			// renew the session and skip this record.
			if rerr := w.Client.Renew(); rerr != nil {
				w.log().Error("session renewal failed", "path", p.Path, "error", rerr)
				w.record(ctx, p, store.OutcomeFailed, 0, rerr)
				return false
			}
			w.record(ctx, p, store.OutcomeSkipped, 0, err)
			return true
		case fetch.KindBlocking:
			w.log().Error("blocking response", "path", p.Path, "error", err)
			w.record(ctx, p, store.OutcomeFailed, 0, err)
			return false
		default:
			w.log().Error("export skipped", "path", p.Path, "error", err)
			w.record(ctx, p, store.OutcomeSkipped, 0, err)
			return true
		}
	}
}

func (w *Worker) save(ctx context.Context, p nodes.PathInfo, archiveFile string, file *os.File, body io.ReadCloser) bool {
	defer body.Close()

	size, err := io.Copy(file, body)
	if err != nil {
		w.log().Error("export copy failed", "path", p.Path, "error", err)
		w.record(ctx, p, store.OutcomeFailed, size, err)
		return true
	}
	if p.LastModified != nil {
		if err := os.Chtimes(archiveFile, *p.LastModified, *p.LastModified); err != nil {
			w.log().Error("set file times failed", "path", p.Path, "error", err)
		}
	}
	w.log().Info("exported", "bytes", size, "path", p.Path)
	w.record(ctx, p, store.OutcomeExported, size, nil)
	return true
}

func (w *Worker) record(ctx context.Context, p nodes.PathInfo, outcome string, bytes int64, cause error) {
	if w.Recorder == nil {
		return
	}
	e := &store.Export{
		RunID:   w.RunID,
		Repo:    p.Repo.String(),
		Path:    p.Path,
		Outcome: outcome,
		Bytes:   bytes,
		Worker:  w.ID,
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	if err := w.Recorder.RecordExport(ctx, e); err != nil {
		w.log().Warn("manifest record failed", "path", p.Path, "error", err)
	}
}

func (w *Worker) backoff() time.Duration {
	if w.Backoff > 0 {
		return w.Backoff
	}
	return defaultBackoff
}

func (w *Worker) log() *slog.Logger {
	if w.Log != nil {
		return w.Log
	}
	return slog.Default()
}
