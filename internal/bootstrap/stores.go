package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"panes/internal/config"
	"panes/internal/database"
	"panes/internal/database/migration"
	"panes/internal/repository"
	repoMemory "panes/internal/repository/memory"
	"panes/internal/repository/postgres"
	"panes/internal/storage"
	storeMemory "panes/internal/storage/memory"
)

// Stores are the metadata and blob stores selected by configuration.
type Stores struct {
	// DB is nil unless the postgres driver is selected.
	DB    *sql.DB
	Repo  repository.PaneRepository
	Blobs storage.Storage
}

// Close releases the database connection, if any.
func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// OpenStores connects the configured drivers. The postgres schema is
// migrated on first use.
func OpenStores(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory metadata store, panes are lost on restart")
		s.Repo = repoMemory.NewPaneMemory()
	case config.DriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		s.DB = db
		s.Repo = postgres.NewPanePostgres(db)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	switch cfg.MinIO.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory blob store, documents are lost on restart")
		s.Blobs = storeMemory.New()
	case config.DriverMinIO:
		blobs, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		s.Blobs = blobs
	default:
		_ = s.Close()
		return nil, fmt.Errorf("unknown storage driver %q", cfg.MinIO.Driver)
	}

	log.Info("stores ready", "db_driver", cfg.Database.Driver, "storage_driver", cfg.MinIO.Driver)
	return s, nil
}
