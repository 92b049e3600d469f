package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"panes/internal/metrics"
	"panes/internal/model"
	"panes/internal/repository"
	"panes/internal/storage"
)

// remover is the single removal path shared by owner deletes, lazy expiry
// and the sweeper. The blob goes first, then the metadata, mirroring the
// upload order so metadata never outlives its blob on success.
type remover struct {
	store   storage.Storage
	repo    repository.PaneRepository
	log     *slog.Logger
	metrics *metrics.PaneMetrics
}

// remove deletes p's blob (best effort) and tombstones its metadata.
// Both steps treat an already-absent target as success.
func (r *remover) remove(ctx context.Context, p *model.Pane, reason model.RemovalReason, at time.Time, path string) error {
	if err := r.store.Delete(ctx, p.BlobPath); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		r.log.WarnContext(ctx, "blob delete failed, removing metadata anyway",
			"pane_id", p.ID, "blob_path", p.BlobPath, "path", path, "err", err)
	}
	if err := r.repo.Delete(ctx, p.ID, reason, at); err != nil {
		return &UpstreamError{Op: "delete pane metadata", Err: err}
	}
	r.metrics.Removed(path)
	return nil
}
