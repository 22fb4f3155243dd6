package main

import (
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/mmeshcher/library-system/internal/repository"
)

var migrateCommands = []string{"up", "down", "status"}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate {up|down|status}",
		Short:     "Apply, roll back or inspect schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			db := stdlib.OpenDBFromPool(pool)
			defer db.Close()

			if err := repository.Migrate(ctx, db, args[0]); err != nil {
				return err
			}
			cmd.Printf("migrate %s: done\n", args[0])
			return nil
		},
	}
}
