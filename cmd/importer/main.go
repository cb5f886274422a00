// Command importer runs the product import API, the import worker and the
// schema migrations.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFlag := &cli.StringFlag{
		Name:  "env",
		Usage: "path of the .env file to load (missing file is ignored)",
		Value: ".env",
	}

	app := &cli.Command{
		Name:  "importer",
		Usage: "bulk CSV product importer",
		Flags: []cli.Flag{envFlag},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "with-worker",
						Usage: "also run an import worker in this process",
					},
					&cli.BoolFlag{
						Name:  "migrate",
						Usage: "apply pending migrations before serving",
					},
				},
				Action: serveAction,
			},
			{
				Name:   "worker",
				Usage:  "consume import jobs from the queue",
				Action: workerAction,
			},
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Commands: []*cli.Command{
					{
						Name:   "up",
						Usage:  "apply all pending migrations",
						Action: migrateUpAction,
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{
							&cli.IntFlag{
								Name:  "steps",
								Usage: "number of migrations to roll back",
								Value: 1,
							},
						},
						Action: migrateDownAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		slog.Error("importer failed", "error", err)
		os.Exit(1)
	}
}
