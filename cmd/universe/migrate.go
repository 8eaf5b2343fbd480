package main

import (
	"planets-universe/internal/shared/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return database.RunMigrations(application.cfg.DatabaseURL())
	},
}
