package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/txstate-etc/mgnl-backup/internal/config"
	"github.com/txstate-etc/mgnl-backup/internal/repo"
)

// Config holds application configuration loaded from environment variables,
// optionally supplemented by a YAML tuning file.
type Config struct {
	URLs          []string        // cluster member urls with credentials; first is the primary
	ArchiveDir    string          // filesystem root for archives
	ArchiveExt    string          // today's snapshot extension, typically YYYYMMDD
	PreviousExt   string          // yesterday's extension, for the hard-link shortcut
	Repos         []repo.RepoType // repositories to back up; empty means dam
	Backoff       time.Duration
	DrainInterval time.Duration
	DrainPolls    int
	ManifestDB    string // sqlite manifest path; empty disables recording
	LogLevel      slog.Level
}

func loadConfig() (*Config, error) {
	urls := os.Getenv("BACKUP_URLS")
	if urls == "" {
		return nil, errors.New("BACKUP_URLS is required (comma separated cluster urls with credentials)")
	}

	cfg := &Config{
		URLs:        strings.Split(urls, ","),
		ArchiveDir:  os.Getenv("ARCHIVE_DIR"),
		ArchiveExt:  os.Getenv("ARCHIVE_EXT"),
		PreviousExt: os.Getenv("PREVIOUS_EXT"),
		ManifestDB:  os.Getenv("MGNL_BACKUP_DB"),
		LogLevel:    parseLogLevel(envOr("MGNL_BACKUP_LOG_LEVEL", "info")),
	}
	if cfg.ArchiveDir == "" {
		return nil, errors.New("ARCHIVE_DIR is required")
	}
	if cfg.ArchiveExt == "" {
		return nil, errors.New("ARCHIVE_EXT is required")
	}
	if cfg.PreviousExt == "" {
		return nil, errors.New("PREVIOUS_EXT is required")
	}

	if path := os.Getenv("MGNL_BACKUP_CONFIG"); path != "" {
		fileCfg, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := applyFile(cfg, fileCfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applyFile folds tuning knobs from the YAML file into the config. The
// environment always wins for settings both carry.
func applyFile(cfg *Config, f *config.File) error {
	rts, err := f.RepoTypes()
	if err != nil {
		return err
	}
	cfg.Repos = rts
	if f.BackoffSec > 0 {
		cfg.Backoff = time.Duration(f.BackoffSec) * time.Second
	}
	if f.DrainIntervalSec > 0 {
		cfg.DrainInterval = time.Duration(f.DrainIntervalSec) * time.Second
	}
	if f.DrainPolls > 0 {
		cfg.DrainPolls = f.DrainPolls
	}
	if cfg.ManifestDB == "" {
		cfg.ManifestDB = f.ManifestDB
	}
	return nil
}

// repoTypes returns the configured repositories, defaulting to dam: the
// shipping configuration only archives the asset store.
func (c *Config) repoTypes() []repo.RepoType {
	if len(c.Repos) > 0 {
		return c.Repos
	}
	return []repo.RepoType{repo.Dam}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// describe renders a short config summary for startup logging, with
// credentials elided.
func (c *Config) describe() string {
	hosts := make([]string, len(c.URLs))
	for i, u := range c.URLs {
		if at := strings.LastIndex(u, "@"); at >= 0 {
			hosts[i] = u[at+1:]
		} else {
			hosts[i] = u
		}
	}
	return fmt.Sprintf("workers=%d hosts=%s dir=%s ext=%s", len(c.URLs),
		strings.Join(hosts, ","), c.ArchiveDir, c.ArchiveExt)
}
