package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/assembly.report/internal/api"
	"github.com/banshee-data/assembly.report/internal/config"
	"github.com/banshee-data/assembly.report/internal/db"
	"github.com/banshee-data/assembly.report/internal/monitoring"
	"github.com/banshee-data/assembly.report/internal/version"
)

func runServe(ctx context.Context, args []string, env config.Env) error {
	fs := newFlagSet("serve", os.Stderr)
	dbPath := fs.String("db", env.DBPath, "Session database")
	listen := fs.String("listen", env.Listen, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("serve: -db or ASSEMBLY_DB_PATH is required")
	}
	if *listen == "" {
		return errors.New("serve: listen address is required")
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()

	monitoring.Logf("%s", version.String())
	return api.NewServer(store).Run(ctx, *listen)
}

func runMigrate(args []string, env config.Env, stdout io.Writer) error {
	fs := newFlagSet("migrate", stdout)
	dbPath := fs.String("db", env.DBPath, "Session database")
	fs.Usage = func() { db.PrintMigrateHelp(stdout) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 && fs.Arg(0) == "help" {
		db.PrintMigrateHelp(stdout)
		return nil
	}
	if *dbPath == "" {
		return errors.New("migrate: -db or ASSEMBLY_DB_PATH is required")
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, stdout)
}
