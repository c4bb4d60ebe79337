package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"totem-quiz-bot/internal/config"
	pgmigrations "totem-quiz-bot/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies (or rolls back) the Postgres schema.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var rollback bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, closer := newLogger(cfg)
			defer closer.Close()
			if rollback {
				return RollbackMigrations(cmd.Context(), cfg.Postgres.URL, logger)
			}
			return RunMigrations(cmd.Context(), cfg.Postgres.URL, logger)
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "roll back the last migration group")
	return cmd
}

// RunMigrations applies every pending migration to the database at dsn.
func RunMigrations(ctx context.Context, dsn string, logger zerolog.Logger) error {
	return withMigrator(ctx, dsn, func(migrator *migrate.Migrator) error {
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			logger.Info().Msg("no new migrations")
			return nil
		}
		logger.Info().Str("group", group.String()).Msg("migrations applied")
		return nil
	})
}

func RollbackMigrations(ctx context.Context, dsn string, logger zerolog.Logger) error {
	return withMigrator(ctx, dsn, func(migrator *migrate.Migrator) error {
		group, err := migrator.Rollback(ctx)
		if err != nil {
			return err
		}
		logger.Info().Str("group", group.String()).Msg("migrations rolled back")
		return nil
	})
}

func withMigrator(ctx context.Context, dsn string, fn func(*migrate.Migrator) error) error {
	if dsn == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	return fn(migrator)
}
