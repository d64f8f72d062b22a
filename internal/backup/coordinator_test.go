package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/store"
)

const damSites = `{
	"path": "/", "properties": [], "type": "rep:root",
	"nodes": [
		{"path": "/jcr:system", "properties": [], "nodes": null, "type": "rep:system"},
		{"path": "/gato", "properties": [], "nodes": null, "type": "mgnl:folder"}
	]
}`

const gatoPaths = `{
	"path": "/gato", "type": "mgnl:folder",
	"properties": [
		{"name": "mgnl:lastModified", "values": ["2018-05-18T09:53:36.314-05:00"]}
	],
	"nodes": [
		{"path": "/gato/rssfeed.png", "type": "mgnl:asset", "nodes": null,
		 "properties": [
			{"name": "mgnl:lastModified", "values": ["2018-05-18T09:53:36.380-05:00"]}
		 ]},
		{"path": "/gato/basilisk.gif", "type": "mgnl:asset", "nodes": null,
		 "properties": [
			{"name": "mgnl:lastModified", "values": ["2016-06-30T12:17:18.324-05:00"]}
		 ]}
	]
}`

func newCoordinator(t *testing.T, mux *http.ServeMux) (*Coordinator, string) {
	t.Helper()
	dir := t.TempDir()
	return &Coordinator{
		Client:        newMagnolia(t, mux),
		ArchiveDir:    dir,
		ArchiveExt:    "20180506",
		Backoff:       time.Millisecond,
		DrainInterval: 10 * time.Millisecond,
		DrainPolls:    10,
		Log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, dir
}

func TestCoordinatorAndWorkersEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, damSites)
	})
	mux.HandleFunc("/.rest/nodes/v1/dam/gato", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gatoPaths)
	})
	mux.HandleFunc("/docroot/gato/export.jsp", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<sv:node path=%q/>", r.URL.Query().Get("path"))
	})

	coord, dir := newCoordinator(t, mux)
	rec := &memRecorder{}

	const workers = 2
	queue := NewQueue(workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := &Worker{
			ID:          i,
			Client:      newMagnolia(t, mux),
			ArchiveDir:  dir,
			ArchiveExt:  coord.ArchiveExt,
			PreviousExt: "20180505",
			Backoff:     time.Millisecond,
			Log:         slog.New(slog.NewTextHandler(io.Discard, nil)),
			Recorder:    rec,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(context.Background(), queue)
		}()
	}

	drained := coord.Run(context.Background(), queue)
	wg.Wait()

	if !drained {
		t.Fatal("expected a clean drain")
	}
	for _, name := range []string{
		"dam%2Fgato%2Frssfeed.png.xml",
		"dam%2Fgato%2Fbasilisk.gif.xml",
	} {
		file := filepath.Join(dir, "dam", "gato", "20180506", name)
		if _, err := os.Stat(file); err != nil {
			t.Errorf("missing archive file %s: %v", name, err)
		}
	}
	if rec.outcomes()[store.OutcomeExported] != 2 {
		t.Fatalf("outcomes = %v", rec.outcomes())
	}
}

func TestCoordinatorCreatesSiteDirectories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, damSites)
	})
	mux.HandleFunc("/.rest/nodes/v1/dam/gato", func(w http.ResponseWriter, r *http.Request) {
		// Empty site: folder root with no leaf children.
		fmt.Fprint(w, `{"path": "/gato", "type": "mgnl:folder", "properties": [], "nodes": null}`)
	})

	coord, dir := newCoordinator(t, mux)
	queue := NewQueue(1)
	if !coord.Run(context.Background(), queue) {
		t.Fatal("expected a clean drain")
	}

	info, err := os.Stat(filepath.Join(dir, "dam", "gato", "20180506"))
	if err != nil || !info.IsDir() {
		t.Fatalf("site directory not created: %v", err)
	}
}

func TestCoordinatorSitesFailureAbortsRepo(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	coord, _ := newCoordinator(t, mux)
	queue := NewQueue(1)
	if !coord.Run(context.Background(), queue) {
		t.Fatal("aborted repo should still drain cleanly")
	}
	if !queue.empty() {
		t.Fatal("queue should be empty after aborted repo")
	}
}

func TestCoordinatorLostSessionRetriesSite(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, damSites)
	})
	mux.HandleFunc("/.rest/nodes/v1/dam/gato", func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Redirect(w, r, "/.magnolia/admincentral", http.StatusFound)
			return
		}
		fmt.Fprint(w, gatoPaths)
	})

	coord, _ := newCoordinator(t, mux)
	queue := NewQueue(4)
	coord.Run(context.Background(), queue)

	if calls != 2 {
		t.Fatalf("paths called %d times, want 2 (renew then retry)", calls)
	}
}

func TestCoordinatorBackoffAbandonsSite(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, damSites)
	})
	mux.HandleFunc("/.rest/nodes/v1/dam/gato", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	coord, _ := newCoordinator(t, mux)
	queue := NewQueue(4)
	if !coord.Run(context.Background(), queue) {
		t.Fatal("abandoned site should still drain cleanly")
	}
	if !queue.empty() {
		t.Fatal("abandoned site must enqueue nothing")
	}
}

func TestCoordinatorForcedTermination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/.rest/nodes/v1/dam", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, damSites)
	})
	mux.HandleFunc("/.rest/nodes/v1/dam/gato", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, gatoPaths)
	})

	coord, _ := newCoordinator(t, mux)
	coord.DrainPolls = 2

	// Nobody consumes: the drain window must expire and report force.
	queue := NewQueue(4)
	if coord.Run(context.Background(), queue) {
		t.Fatal("expected forced termination with an idle queue")
	}
}
