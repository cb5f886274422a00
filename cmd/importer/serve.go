package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/database"
	"github.com/AarnabDutta/Product-Importer-FullStack/internal/web"
)

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}

	if cmd.Bool("migrate") {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
	}

	uploadDir, err := cfg.Upload.EnsureUploadDir()
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	service := a.service(uploadDir)
	server := web.NewServer(service, cfg, a.healthChecks()...)

	var worker *core.Worker
	if cmd.Bool("with-worker") {
		worker = a.worker()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		core.StartUploadJanitor(gctx, core.JanitorConfig{
			Dir:       uploadDir,
			OrphanTTL: cfg.Upload.OrphanTTL,
			Interval:  cfg.Upload.SweepInterval,
		})
		return nil
	})

	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.UploadStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
		}
		if err := service.Drain(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if worker != nil {
			if err := worker.Drain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "active", worker.Active(), "error", err)
			}
		}
		return nil
	})

	return g.Wait()
}
