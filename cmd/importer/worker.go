package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"
)

// workerAction consumes jobs until interrupted, then lets running imports
// finish within the shutdown timeout.
func workerAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	w := a.worker()
	slog.Info("worker started",
		"concurrency", cfg.Worker.Concurrency,
		"queue", cfg.Redis.QueueKey,
		"chunk_size", cfg.Import.ChunkSize,
	)

	if err := w.Run(ctx); err != nil {
		return err
	}

	slog.Info("worker stopping", "active", w.Active())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := w.Drain(shutdownCtx); err != nil {
		slog.Warn("imports did not complete in time", "active", w.Active(), "error", err)
	}
	return nil
}
