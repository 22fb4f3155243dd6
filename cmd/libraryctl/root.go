package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	databaseURI string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Maintenance tool for the library service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}
			if opts.databaseURI == "" {
				opts.databaseURI = os.Getenv("DATABASE_URI")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.databaseURI, "database-uri", "d", "", "database URI (defaults to $DATABASE_URI)")

	cmd.AddCommand(newMigrateCmd(opts), newSeedCmd(opts))

	return cmd
}

func (o *options) connect(ctx context.Context) (*pgxpool.Pool, error) {
	if o.databaseURI == "" {
		return nil, errors.New("database URI is not set: use --database-uri or DATABASE_URI")
	}

	pool, err := pgxpool.New(ctx, o.databaseURI)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
