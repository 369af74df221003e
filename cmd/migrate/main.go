// Command migrate applies the Postgres schema used by the snapshot store and
// the audit mirror.
//
//	migrate [up|down|version|force <version>]
package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	appconfig "github.com/wolfman30/referral-scheduler/internal/config"
	appmigrations "github.com/wolfman30/referral-scheduler/migrations"
	"github.com/wolfman30/referral-scheduler/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel).Component("migrate")

	if err := run(cfg, os.Args[1:]); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

// databaseURL prefers the snapshot database and falls back to the audit one.
func databaseURL(cfg *appconfig.Config) string {
	if url := strings.TrimSpace(cfg.DatabaseURL); url != "" {
		return url
	}
	return strings.TrimSpace(cfg.AuditDatabaseURL)
}

func run(cfg *appconfig.Config, args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
	}
	if command == "force" && len(args) < 2 {
		return errors.New("force needs a version")
	}

	url := databaseURL(cfg)
	if url == "" {
		return errors.New("DATABASE_URL or AUDIT_DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	switch command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "force":
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("invalid version: %w", convErr)
		}
		err = m.Force(version)
	case "version":
		version, dirty, vErr := m.Version()
		if vErr != nil && !errors.Is(vErr, migrate.ErrNilVersion) {
			return vErr
		}
		fmt.Printf("version %d (dirty=%t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	fmt.Printf("migrate %s complete\n", command)
	return nil
}
