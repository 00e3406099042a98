package db

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// goose keeps its dialect and filesystem in package state
var gooseMu sync.Mutex

func gooseDialect(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite3", nil
	case DriverPostgres:
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func withGoose(driver string, fn func() error) error {
	dialect, err := gooseDialect(driver)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// Migrate runs all pending embedded migrations
func Migrate(db *sql.DB, driver string) error {
	return withGoose(driver, func() error {
		if err := goose.Up(db, migrationsDir); err != nil {
			return fmt.Errorf("run goose up migrations: %w", err)
		}
		return nil
	})
}

// MigrateDown rolls back the most recent migration
func MigrateDown(db *sql.DB, driver string) error {
	return withGoose(driver, func() error {
		if err := goose.Down(db, migrationsDir); err != nil {
			return fmt.Errorf("run goose down migration: %w", err)
		}
		return nil
	})
}

// SchemaVersion reports the current migration version
func SchemaVersion(db *sql.DB, driver string) (int64, error) {
	var version int64
	err := withGoose(driver, func() error {
		v, err := goose.GetDBVersion(db)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		version = v
		return nil
	})
	return version, err
}
