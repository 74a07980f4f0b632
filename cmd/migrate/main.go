package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/db"
	"github.com/little-explorers/storefront/pkg/logger"
	"github.com/little-explorers/storefront/pkg/migrate"
)

func main() {
	var (
		cmd     = flag.String("cmd", "up", "one of up, down, status, version, create, validate")
		dir     = flag.String("dir", "", "migrations directory; empty uses the bundled SQL for database commands")
		name    = flag.String("name", "", "migration name for -cmd=create")
		version = flag.String("version", "", "goose timestamp for -cmd=version")
	)
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fail(nil, context.Background(), "load config", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.LogFormat == "console",
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	fileDir := *dir
	if fileDir == "" {
		fileDir = migrate.DefaultDir
	}
	switch *cmd {
	case "create":
		if *name == "" {
			fail(logg, ctx, "create", fmt.Errorf("-name is required"))
		}
		path, err := migrate.CreateSQLMigration(fileDir, *name)
		if err != nil {
			fail(logg, ctx, "create", err)
		}
		logg.Info(logg.WithField(ctx, "path", path), "migration created")
		return
	case "validate":
		if err := migrate.ValidateDir(fileDir); err != nil {
			fail(logg, ctx, "validate", err)
		}
		logg.Info(ctx, "migrations valid")
		return
	}

	client, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		fail(logg, ctx, "connect database", err)
	}
	defer client.Close()
	sqlDB, err := client.DB().DB()
	if err != nil {
		fail(logg, ctx, "unwrap database", err)
	}
	runner, err := migrate.NewRunner(sqlDB, *dir)
	if err != nil {
		fail(logg, ctx, "prepare runner", err)
	}

	switch *cmd {
	case "up", "down", "status":
		err = runner.Exec(ctx, *cmd)
	case "version":
		if *version == "" {
			err = fmt.Errorf("-version is required")
			break
		}
		err = runner.To(ctx, *version)
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}
	if err != nil {
		fail(logg, ctx, *cmd, err)
	}
	logg.Info(ctx, "migrate finished")
}

func fail(logg *logger.Logger, ctx context.Context, step string, err error) {
	if logg == nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", step, err)
	} else {
		logg.Error(ctx, step+" failed", err)
	}
	os.Exit(1)
}
