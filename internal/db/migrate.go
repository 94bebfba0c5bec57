package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/geocoder89/habithub/internal/db/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs a goose command against the embedded migrations, reusing the
// pool's connection settings.
func Migrate(ctx context.Context, pool *pgxpool.Pool, command string) error {
	// the pool owns the connections; sqlDB keeps no idle ones of its own
	sqlDB := stdlib.OpenDBFromPool(pool)

	return runGoose(ctx, sqlDB, command)
}

func runGoose(ctx context.Context, sqlDB *sql.DB, command string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case MigrateUp:
		return goose.UpContext(ctx, sqlDB, ".")
	case MigrateDown:
		return goose.DownContext(ctx, sqlDB, ".")
	case MigrateStatus:
		return goose.StatusContext(ctx, sqlDB, ".")
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
}
