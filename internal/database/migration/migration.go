package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_panes",
		SQL: `CREATE TABLE IF NOT EXISTS panes (
  id             TEXT        PRIMARY KEY,
  owner_id       TEXT        NOT NULL,
  original_name  TEXT        NOT NULL,
  size_bytes     BIGINT      NOT NULL CHECK (size_bytes >= 0),
  content_type   TEXT        NOT NULL,
  blob_path      TEXT        NOT NULL UNIQUE,
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  expires_at     TIMESTAMPTZ NOT NULL,
  view_count     BIGINT      NOT NULL DEFAULT 0 CHECK (view_count >= 0),
  is_public      BOOLEAN     NOT NULL DEFAULT TRUE,
  removed_at     TIMESTAMPTZ,
  removed_reason TEXT        CHECK (removed_reason IN ('deleted', 'expired')),
  CHECK (expires_at > created_at)
);`,
	},
	{
		Name: "create_index_panes_owner_expires",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_panes_owner_expires ON panes (owner_id, expires_at) WHERE removed_at IS NULL;`,
	},
	{
		Name: "create_index_panes_expires",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_panes_expires ON panes (expires_at) WHERE removed_at IS NULL;`,
	},
}

// EnsureMigrated checks if the 'panes' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *slog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With("component", "database", "db_host", dbHost)

	log.InfoContext(ctx, "db migration check", "event", "db_migration_check", "status", "starting")

	var exists bool
	query := "SELECT to_regclass('public.panes') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.ErrorContext(ctx, "db migration failed",
			"event", "db_migration_failed",
			"status", "error",
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.InfoContext(ctx, "schema already exists, skipping migration",
			"event", "db_migration_skip",
			"status", "success",
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	}

	log.InfoContext(ctx, "db migration start", "event", "db_migration_start", "status", "in_progress")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.ErrorContext(ctx, "db migration failed",
				"event", "db_migration_failed",
				"status", "error",
				"migration_step", step.Name,
				"err", err,
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.InfoContext(ctx, "db migration step",
			"event", "db_migration_step",
			"status", "success",
			"migration_step", step.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds(),
		)
	}

	log.InfoContext(ctx, "db migration success",
		"event", "db_migration_success",
		"status", "success",
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
