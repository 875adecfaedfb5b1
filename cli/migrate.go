package cli

import (
	"invoice-backend/database"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			db, err := database.Open(cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(db); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}
