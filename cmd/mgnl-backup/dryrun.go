package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/txstate-etc/mgnl-backup/internal/fetch"
	"github.com/txstate-etc/mgnl-backup/internal/nodes"
)

// cmdDryRun enumerates everything a run would export without touching the
// archive directory: one line per leaf path, with -sizes adding a HEAD
// request per document and -collapse summarizing subtrees instead of
// listing leaves.
func cmdDryRun(args []string) error {
	fs := flag.NewFlagSet("dry-run", flag.ContinueOnError)
	sizes := fs.Bool("sizes", false, "issue a HEAD request per document and print its size")
	collapse := fs.Int("collapse", 0, "summarize subtrees N levels below each site instead of listing leaves")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := fetch.New(cfg.URLs[0])
	if err != nil {
		return fmt.Errorf("primary client: %w", err)
	}

	var total int64
	for _, rt := range cfg.repoTypes() {
		sites, err := client.Sites(ctx, rt)
		if err != nil {
			return fmt.Errorf("sites for %s: %w", rt, err)
		}
		for _, site := range sites {
			var paths []nodes.PathInfo
			if *collapse > 0 {
				paths, err = client.ReducedPaths(ctx, site, *collapse)
			} else {
				paths, err = client.Paths(ctx, site)
			}
			if err != nil {
				fmt.Printf("# site %s%s skipped: %v\n", rt, site.Path, err)
				continue
			}
			for _, p := range paths {
				line := fmt.Sprintf("%s%s", p.Repo, p.Path)
				if p.LastModified != nil {
					line += fmt.Sprintf("\t%s", p.LastModified.Format("2006-01-02T15:04:05.000Z07:00"))
				}
				if *sizes {
					size, known, err := client.DocSize(ctx, p)
					switch {
					case err != nil:
						line += fmt.Sprintf("\tsize error: %v", err)
					case !known:
						line += "\tsize unknown"
					default:
						line += fmt.Sprintf("\t%d", size)
						total += size
					}
				}
				fmt.Println(line)
			}
		}
	}
	if *sizes {
		fmt.Printf("# total known bytes: %d\n", total)
	}
	return nil
}
