package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

func migrateCmd(a *app) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			logger := a.system("storage")

			store, err := storage.OpenStorage(a.cfg.Storage.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			if status {
				version, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: schema version %d\n", a.cfg.Storage.DatabasePath, version)
				return nil
			}

			applied, err := store.Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			for _, version := range applied {
				logger.Info("applied migration", "version", version)
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "Database is up to date.")
			} else {
				fmt.Fprintf(out, "Applied %d migration(s).\n", len(applied))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print the current schema version and exit")
	return cmd
}
