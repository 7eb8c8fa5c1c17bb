package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/trezcool/coursedesk/storage/database"
)

var (
	migrateFunc  = database.RunMigration     // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func newCreateDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "createdb",
		Short: "Create the application role and database if they are missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := createDBFunc(a.conf); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database %q is ready\n", a.conf.Database.Name)
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose command against the embedded migrations",
		Long: `Run a goose command against the embedded migrations.

Commands: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, reset,
status, version, create NAME [go|sql], fix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			return a.migrate(cmd.Context(), db, args[0], args[1:]...)
		},
	}
}

func (a *app) migrate(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	a.logger.Info("running migration: " + command)
	return migrateFunc(ctx, db, command, args...)
}
