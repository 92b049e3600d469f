package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"panes/internal/model"
	"panes/internal/repository"
)

const paneColumns = `id, owner_id, original_name, size_bytes, content_type, blob_path,
		created_at, expires_at, view_count, is_public, removed_at, removed_reason`

// PanePostgres is a PostgreSQL implementation of repository.PaneRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type PanePostgres struct {
	db *sql.DB
}

// NewPanePostgres creates a new PanePostgres repository.
func NewPanePostgres(db *sql.DB) *PanePostgres {
	return &PanePostgres{db: db}
}

var _ repository.PaneRepository = (*PanePostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPane(row rowScanner) (*model.Pane, error) {
	var (
		p         model.Pane
		removedAt sql.NullTime
		reason    sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.OriginalName,
		&p.SizeBytes,
		&p.ContentType,
		&p.BlobPath,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.ViewCount,
		&p.IsPublic,
		&removedAt,
		&reason,
	); err != nil {
		return nil, err
	}
	if removedAt.Valid {
		t := removedAt.Time
		p.RemovedAt = &t
		p.RemovedReason = model.RemovalReason(reason.String)
	}
	return &p, nil
}

// Create inserts a pane row unless the id already exists.
// ON CONFLICT DO NOTHING makes the existence check and the write one statement.
func (r *PanePostgres) Create(ctx context.Context, p *model.Pane) error {
	const q = `
		INSERT INTO panes (id, owner_id, original_name, size_bytes, content_type, blob_path,
			created_at, expires_at, view_count, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
		RETURNING id
	`
	var id string
	err := r.db.QueryRowContext(ctx, q,
		p.ID,
		p.OwnerID,
		p.OriginalName,
		p.SizeBytes,
		p.ContentType,
		p.BlobPath,
		p.CreatedAt,
		p.ExpiresAt,
		p.ViewCount,
		p.IsPublic,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// FindByID fetches a single pane, tombstones included.
func (r *PanePostgres) FindByID(ctx context.Context, id string) (*model.Pane, error) {
	q := `SELECT ` + paneColumns + ` FROM panes WHERE id = $1`
	p, err := scanPane(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Exists reports whether any row, tombstone or not, holds the id.
func (r *PanePostgres) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM panes WHERE id = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByOwner returns an owner's live, unexpired panes.
func (r *PanePostgres) ListByOwner(ctx context.Context, ownerID string, now time.Time, limit int) ([]model.Pane, error) {
	q := `SELECT ` + paneColumns + `
		FROM panes
		WHERE owner_id = $1 AND removed_at IS NULL AND expires_at > $2
		ORDER BY expires_at ASC, created_at DESC
		LIMIT $3`
	return r.list(ctx, q, ownerID, now, limit)
}

// ListExpired returns live panes whose expiry has passed.
func (r *PanePostgres) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Pane, error) {
	q := `SELECT ` + paneColumns + `
		FROM panes
		WHERE removed_at IS NULL AND expires_at <= $1
		ORDER BY expires_at ASC
		LIMIT $2`
	return r.list(ctx, q, now, limit)
}

func (r *PanePostgres) list(ctx context.Context, q string, args ...any) ([]model.Pane, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Pane, 0)
	for rows.Next() {
		p, err := scanPane(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// IncrementViewCount bumps view_count in a single UPDATE so concurrent
// increments never lose updates.
func (r *PanePostgres) IncrementViewCount(ctx context.Context, id string) error {
	const q = `UPDATE panes SET view_count = view_count + 1 WHERE id = $1 AND removed_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete tombstones a live pane. Missing or already removed rows are not an error.
func (r *PanePostgres) Delete(ctx context.Context, id string, reason model.RemovalReason, at time.Time) error {
	const q = `UPDATE panes SET removed_at = $2, removed_reason = $3 WHERE id = $1 AND removed_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, id, at, string(reason))
	return err
}
