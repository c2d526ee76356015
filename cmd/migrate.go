package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and seed the admin user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		admin, err := st.EnsureUser(ctx, cfg.Pipeline.AdminUser, "")
		if err != nil {
			return eris.Wrap(err, "seed admin user")
		}

		zap.L().Info("migration complete",
			zap.String("driver", cfg.Store.Driver),
			zap.String("admin_user", admin.Name),
			zap.String("admin_id", admin.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
