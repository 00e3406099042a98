// Package cmd - database schema migrations
package cmd

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"embroidery-pricing/db"
	"embroidery-pricing/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the profile database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withDatabase(func(cmd *cobra.Command, conn *sql.DB, driver string) error {
		if err := db.Migrate(conn, driver); err != nil {
			return err
		}
		return printSchemaVersion(cmd, conn, driver)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: withDatabase(func(cmd *cobra.Command, conn *sql.DB, driver string) error {
		if err := db.MigrateDown(conn, driver); err != nil {
			return err
		}
		return printSchemaVersion(cmd, conn, driver)
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the current schema version",
	RunE: withDatabase(func(cmd *cobra.Command, conn *sql.DB, driver string) error {
		return printSchemaVersion(cmd, conn, driver)
	}),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

// withDatabase opens the configured database without migrating it
func withDatabase(fn func(cmd *cobra.Command, conn *sql.DB, driver string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Get().Database
		conn, err := db.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		return fn(cmd, conn, cfg.Driver)
	}
}

func printSchemaVersion(cmd *cobra.Command, conn *sql.DB, driver string) error {
	version, err := db.SchemaVersion(conn, driver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
