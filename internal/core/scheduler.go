package core

// scheduler.go runs the upload janitor.
//
// Accepted files are removed by the import that consumes them. Files left
// behind by a worker crash or a job that never ran are swept here once they
// are older than the orphan TTL.

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// JanitorConfig configures the upload janitor.
type JanitorConfig struct {
	Dir       string
	OrphanTTL time.Duration
	Interval  time.Duration
}

// StartUploadJanitor sweeps immediately, then every Interval until ctx ends.
func StartUploadJanitor(ctx context.Context, cfg JanitorConfig) {
	slog.Info("upload janitor started", "dir", cfg.Dir, "orphan_ttl", cfg.OrphanTTL, "interval", cfg.Interval)

	runSweep(cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("upload janitor stopped")
			return
		case <-ticker.C:
			runSweep(cfg)
		}
	}
}

func runSweep(cfg JanitorConfig) {
	removed, err := SweepUploads(cfg.Dir, cfg.OrphanTTL, time.Now())
	if err != nil {
		slog.Error("upload sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("swept orphaned uploads", "removed", removed)
	}
}

// SweepUploads removes regular .csv files in dir last modified before
// now-ttl and returns how many were removed.
func SweepUploads(dir string, ttl time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-ttl)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !HasCSVExtension(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to remove orphaned upload", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed, nil
}
