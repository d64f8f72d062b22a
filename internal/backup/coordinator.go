package backup

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/archive"
	"github.com/txstate-etc/mgnl-backup/internal/fetch"
	"github.com/txstate-etc/mgnl-backup/internal/nodes"
	"github.com/txstate-etc/mgnl-backup/internal/repo"
)

const (
	defaultDrainInterval = 30 * time.Second
	defaultDrainPolls    = 10
)

// Coordinator enumerates sites and leaf paths through the primary cluster
// member and feeds the worker queue. Like a worker, it exclusively owns its
// fetch.Client.
type Coordinator struct {
	Client        *fetch.Client
	ArchiveDir    string
	ArchiveExt    string
	Repos         []repo.RepoType // defaults to just dam
	Backoff       time.Duration   // defaults to 15s
	DrainInterval time.Duration   // defaults to 30s
	DrainPolls    int             // defaults to 10
	Log           *slog.Logger
}

// Run walks every configured repository, closes the queue, and waits out the
// drain window. The return reports whether the queue drained cleanly; false
// means outstanding records were abandoned.
func (c *Coordinator) Run(ctx context.Context, queue *Queue) bool {
	for _, rt := range c.repos() {
		if !c.enumerate(ctx, rt, queue) {
			break
		}
	}
	queue.close()
	return c.drain(queue)
}

// enumerate feeds one repository's leaf paths into the queue. A false
// return retires the coordinator; a failed repository only aborts itself.
func (c *Coordinator) enumerate(ctx context.Context, rt repo.RepoType, queue *Queue) bool {
	sites, err := c.Client.Sites(ctx, rt)
	if err != nil || sites == nil {
		c.log().Error("unable to retrieve sites", "repo", rt.String(), "error", err)
		return true
	}

	for _, site := range sites {
		dir := archive.Path(c.ArchiveDir, c.ArchiveExt, site)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			c.log().Error("unable to create archive directory", "dir", dir, "error", err)
			continue
		}
		if !c.enqueueSite(ctx, site, queue) {
			return false
		}
	}
	return true
}

// enqueueSite fetches the leaf paths for one site and feeds the queue,
// applying the same error policy as workers except that a lost session
// retries the same site. A false return retires the coordinator.
func (c *Coordinator) enqueueSite(ctx context.Context, site nodes.PathInfo, queue *Queue) bool {
	for {
		paths, err := c.Client.Paths(ctx, site)
		if err == nil {
			if paths == nil {
				c.log().Info("no paths for site", "site", site.Path)
				return true
			}
			for _, p := range paths {
				queue.enqueue(p)
			}
			return true
		}

		switch fetch.KindOf(err) {
		case fetch.KindLostSession:
			c.log().Warn("lost session", "site", site.Path, "session", c.Client.Session(), "error", err)
			if rerr := c.Client.Renew(); rerr != nil {
				c.log().Error("session renewal failed", "site", site.Path, "error", rerr)
				return false
			}
		case fetch.KindBackoff:
			c.log().Warn("backing off", "site", site.Path, "session", c.Client.Session(), "error", err)
			time.Sleep(c.backoff())
			// Renew and abandon the site: the server cannot resume its
			// persistent connection after a 500.
			if rerr := c.Client.Renew(); rerr != nil {
				c.log().Error("session renewal failed", "site", site.Path, "error", rerr)
				return false
			}
			return true
		case fetch.KindBlocking:
			c.log().Error("blocking response", "site", site.Path, "error", err)
			return false
		default:
			c.log().Error("site skipped", "site", site.Path, "error", err)
			return true
		}
	}
}

// drain polls queue emptiness after the producer side closes. The window is
// a hard ceiling measured on the queue, not on worker liveness; an export
// still in flight past the last poll is abandoned.
func (c *Coordinator) drain(queue *Queue) bool {
	for i := 0; i < c.drainPolls(); i++ {
		if queue.empty() {
			return true
		}
		time.Sleep(c.drainInterval())
	}
	c.log().Error("forced to terminate with outstanding requests")
	return false
}

func (c *Coordinator) repos() []repo.RepoType {
	if len(c.Repos) > 0 {
		return c.Repos
	}
	return []repo.RepoType{repo.Dam}
}

func (c *Coordinator) backoff() time.Duration {
	if c.Backoff > 0 {
		return c.Backoff
	}
	return defaultBackoff
}

func (c *Coordinator) drainInterval() time.Duration {
	if c.DrainInterval > 0 {
		return c.DrainInterval
	}
	return defaultDrainInterval
}

func (c *Coordinator) drainPolls() int {
	if c.DrainPolls > 0 {
		return c.DrainPolls
	}
	return defaultDrainPolls
}

func (c *Coordinator) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}
