package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fasttq/fasttq/pkg/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long: `Apply all pending schema migrations to the FastTQ database.

The target database comes from --database-url or, when the flag is unset,
from FASTTQ_DATABASE_WRITER_URL. Migrations are embedded in the binary and
applied in order; running against an up-to-date database is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		databaseURL, _ := cmd.Flags().GetString("database-url")
		if databaseURL == "" {
			databaseURL = os.Getenv("FASTTQ_DATABASE_WRITER_URL")
		}
		if databaseURL == "" {
			return fmt.Errorf("--database-url or FASTTQ_DATABASE_WRITER_URL is required")
		}

		if err := storage.Migrate(databaseURL); err != nil {
			return fmt.Errorf("failed to apply migrations: %v", err)
		}

		fmt.Println("✓ Migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().String("database-url", "", "Postgres connection string (defaults to FASTTQ_DATABASE_WRITER_URL)")
}
