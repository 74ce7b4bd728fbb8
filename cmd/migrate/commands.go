package main

import (
	"context"
	"fmt"

	"storefront-sync/internal/config"
	"storefront-sync/internal/db"
	"storefront-sync/internal/logging"
	"storefront-sync/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	dsn string
}

// newRootCommand builds the migrate CLI: up, down and version.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the storefront database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "postgres connection string (defaults to DB_DSN)")

	cmd.AddCommand(newUpCommand(opts))
	cmd.AddCommand(newDownCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	return cmd
}

func newUpCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
				if err := migrate.Apply(ctx, pool); err != nil {
					return err
				}
				log.Info("migrations applied")
				return nil
			})
		},
	}
}

func newDownCommand(opts *rootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		PreRunE: func(*cobra.Command, []string) error {
			if steps <= 0 {
				return fmt.Errorf("invalid --steps %d: must be positive", steps)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
				if err := migrate.Down(ctx, pool, steps); err != nil {
					return err
				}
				log.WithField("steps", steps).Info("migrations rolled back")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func newVersionCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withPool(cmd.Context(), opts, func(ctx context.Context, pool *pgxpool.Pool, _ logrus.FieldLogger) error {
				version, dirty, err := migrate.Version(ctx, pool)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
				return nil
			})
		},
	}
}

func withPool(ctx context.Context, opts *rootOptions, fn func(context.Context, *pgxpool.Pool, logrus.FieldLogger) error) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	dsn := cfg.DBConnString
	if opts.dsn != "" {
		dsn = opts.dsn
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat).WithField("component", "migrate")

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool, log)
}
