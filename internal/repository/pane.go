package repository

import (
	"context"
	"time"

	"panes/internal/model"
)

// PaneRepository is the metadata store for panes. Implementations rely on
// single-record atomicity only; no cross-record transactions are used.
type PaneRepository interface {
	// Create inserts p only if its id has never been used.
	// Returns ErrConflict when a live record or a tombstone holds the id.
	Create(ctx context.Context, p *model.Pane) error

	// FindByID returns the record for id, including tombstones.
	// Returns ErrNotFound when the id was never issued.
	FindByID(ctx context.Context, id string) (*model.Pane, error)

	// Exists reports whether id has ever been issued.
	Exists(ctx context.Context, id string) (bool, error)

	// ListByOwner returns live panes of ownerID with ExpiresAt after now,
	// ordered by ExpiresAt ascending then CreatedAt descending.
	ListByOwner(ctx context.Context, ownerID string, now time.Time, limit int) ([]model.Pane, error)

	// ListExpired returns up to limit live panes with ExpiresAt at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Pane, error)

	// IncrementViewCount atomically adds one to a live pane's view count.
	// Returns ErrNotFound when the pane is absent or tombstoned.
	IncrementViewCount(ctx context.Context, id string) error

	// Delete tombstones a live pane. Deleting an absent or already
	// tombstoned pane returns nil.
	Delete(ctx context.Context, id string, reason model.RemovalReason, at time.Time) error
}
