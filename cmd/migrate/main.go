// Package main applies, rolls back or reports database schema migrations.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	pgstore "github.com/narvanalabs/boardroom/internal/store/postgres"
	"github.com/narvanalabs/boardroom/pkg/config"
	"github.com/narvanalabs/boardroom/pkg/logger"
	"github.com/pressly/goose/v3"
)

func main() {
	cfg := config.LoadWithDefaults()
	dsn := flag.String("dsn", cfg.DatabaseDSN, "Database URL (or set DATABASE_URL env var)")
	timeout := flag.Duration("timeout", 5*time.Minute, "Timeout for the whole command")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-dsn URL] up|down|status")
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	log := logger.New(logger.Options{Level: logger.ParseLevel(cfg.Log.Level), JSON: false})

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Error("failed to open database connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch command {
	case "up":
		err = pgstore.Migrate(ctx, db, log.Logger)
	case "down":
		err = pgstore.Rollback(ctx, db, log.Logger)
	case "status":
		var statuses []*goose.MigrationStatus
		statuses, err = pgstore.MigrationStatus(ctx, db)
		for _, s := range statuses {
			applied := "-"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%-6d %-10s %-25s %s\n", s.Source.Version, s.State, applied, s.Source.Path)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
}
