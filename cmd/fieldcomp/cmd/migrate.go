package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/fieldcomp/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("status", false, "print migration status without applying")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if dbURL == "" {
		return fmt.Errorf("--db-url required")
	}
	database, err := db.Open(cmd.Context(), dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	if statusOnly, _ := cmd.Flags().GetBool("status"); statusOnly {
		statuses, err := db.MigrateStatus(database)
		if err != nil {
			return err
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.Format("2006-01-02T15:04:05Z")
			}
			fmt.Fprintf(out, "%s\t%s\n", s.ID, state)
		}
		return nil
	}

	applied, err := db.MigrateUp(database)
	if err != nil {
		return err
	}
	log.Info("migrations applied", zap.Strings("migrations", applied))
	fmt.Fprintf(out, "applied %d migrations\n", len(applied))
	return nil
}
