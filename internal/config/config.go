// Package config parses the optional mgnl-backup.yaml tuning file. Required
// settings (cluster URLs, archive location and extensions) come from the
// environment; the file only carries knobs with sane defaults.
package config

import (
	"fmt"
	"os"

	"github.com/txstate-etc/mgnl-backup/internal/repo"
	"gopkg.in/yaml.v3"
)

// File is the top-level mgnl-backup.yaml structure.
type File struct {
	Repos            []string `yaml:"repos,omitempty"`
	BackoffSec       int      `yaml:"backoff_sec,omitempty"`
	DrainIntervalSec int      `yaml:"drain_interval_sec,omitempty"`
	DrainPolls       int      `yaml:"drain_polls,omitempty"`
	ManifestDB       string   `yaml:"manifest_db,omitempty"`
}

// LoadFile reads, parses, and validates a YAML config file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates YAML config data.
func Parse(data []byte) (*File, error) {
	var cfg File
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *File) error {
	if _, err := cfg.RepoTypes(); err != nil {
		return err
	}
	if cfg.BackoffSec < 0 {
		return fmt.Errorf("backoff_sec must not be negative: %d", cfg.BackoffSec)
	}
	if cfg.DrainIntervalSec < 0 {
		return fmt.Errorf("drain_interval_sec must not be negative: %d", cfg.DrainIntervalSec)
	}
	if cfg.DrainPolls < 0 {
		return fmt.Errorf("drain_polls must not be negative: %d", cfg.DrainPolls)
	}
	return nil
}

// RepoTypes resolves the configured repository names against the registry.
func (f *File) RepoTypes() ([]repo.RepoType, error) {
	var out []repo.RepoType
	for _, name := range f.Repos {
		rt, err := repo.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("repos: %w", err)
		}
		out = append(out, rt)
	}
	return out, nil
}
