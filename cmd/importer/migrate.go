package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/database"
)

func migrateUpAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}
	return database.Migrate(cfg.Database.URL)
}

func migrateDownAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd.String("env"))
	if err != nil {
		return err
	}
	return database.MigrateDown(cfg.Database.URL, int(cmd.Int("steps")))
}
