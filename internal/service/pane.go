package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"panes/internal/idgen"
	"panes/internal/metrics"
	"panes/internal/model"
	"panes/internal/repository"
	"panes/internal/storage"
)

const (
	// ListLimit caps the number of panes returned by ListByOwner.
	ListLimit = 100

	// maxCreateAttempts bounds retries when a conditional create loses an id race.
	maxCreateAttempts = 3

	// pathSystem labels removals requested through Delete with isSystem set.
	pathSystem = "system"
)

// UploadFile is an upload as parsed by the transport layer.
type UploadFile struct {
	Content     io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// UploadResult is returned after a pane was created.
type UploadResult struct {
	ID        string    `json:"id"`
	ShareURL  string    `json:"shareUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Content is a pane's document together with its metadata.
type Content struct {
	Pane *model.Pane
	Data []byte
}

// PaneListResult is the service-level DTO for an owner's panes.
type PaneListResult struct {
	Panes []model.Pane
	Total int
}

// PaneService defines the lifecycle operations on panes.
type PaneService interface {
	// ValidateUpload checks an upload against the extension, content type and
	// size rules. It performs no I/O.
	ValidateUpload(f UploadFile) error

	// Upload validates f, stores the document, then records its metadata.
	Upload(ctx context.Context, f UploadFile, ownerID string) (*UploadResult, error)

	// GetMetadata returns a live pane. An expired pane is removed and reported as ErrGone.
	GetMetadata(ctx context.Context, id string) (*model.Pane, error)

	// GetContent returns a live pane's document and counts a view in the background.
	GetContent(ctx context.Context, id string) (*Content, error)

	// ListByOwner returns up to ListLimit unexpired panes of ownerID.
	ListByOwner(ctx context.Context, ownerID string) (*PaneListResult, error)

	// Delete removes a pane. System deletes skip the ownership check and
	// treat a missing pane as success.
	Delete(ctx context.Context, id, callerID string, isSystem bool) error

	// ShareURL returns the public link for a pane id.
	ShareURL(id string) string

	// Wait blocks until background view count updates have finished.
	Wait()
}

// PaneOptions configures a PaneService.
type PaneOptions struct {
	TTL               time.Duration
	MaxSizeBytes      int64
	AllowedExtensions []string
	FrontendURL       string
	Logger            *slog.Logger
	Metrics           *metrics.PaneMetrics
}

// paneService is a concrete implementation of PaneService.
type paneService struct {
	remover

	ids         *idgen.Generator
	ttl         time.Duration
	maxSize     int64
	allowedExt  []string
	frontendURL string
	now         func() time.Time

	inflight sync.WaitGroup
}

// NewPaneService constructs a new PaneService.
func NewPaneService(store storage.Storage, repo repository.PaneRepository, opts PaneOptions) PaneService {
	return newPaneService(store, repo, opts)
}

func newPaneService(store storage.Storage, repo repository.PaneRepository, opts PaneOptions) *paneService {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	allowed := make([]string, 0, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed = append(allowed, strings.TrimPrefix(strings.ToLower(ext), "."))
	}
	return &paneService{
		remover: remover{
			store:   store,
			repo:    repo,
			log:     log.With("component", "pane_service"),
			metrics: opts.Metrics,
		},
		ids:         idgen.New(repo.Exists),
		ttl:         opts.TTL,
		maxSize:     opts.MaxSizeBytes,
		allowedExt:  allowed,
		frontendURL: strings.TrimRight(opts.FrontendURL, "/"),
		now:         time.Now,
	}
}

func (s *paneService) ShareURL(id string) string {
	return s.frontendURL + "/v/" + id
}

func (s *paneService) Wait() {
	s.inflight.Wait()
}

func (s *paneService) ValidateUpload(f UploadFile) error {
	if f.Content == nil || f.Filename == "" {
		return &ValidationError{Violations: []string{"file is required"}}
	}

	var violations []string
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Filename)), ".")
	if !slices.Contains(s.allowedExt, ext) {
		violations = append(violations, fmt.Sprintf("extension %q is not allowed, expected one of: %s",
			ext, strings.Join(s.allowedExt, ", ")))
	}
	if f.ContentType != model.DocumentContentType {
		violations = append(violations, fmt.Sprintf("content type %q is not allowed, expected %s",
			f.ContentType, model.DocumentContentType))
	}
	switch {
	case f.Size <= 0:
		violations = append(violations, "file is empty")
	case f.Size > s.maxSize:
		violations = append(violations, fmt.Sprintf("file size %d exceeds the %d byte limit", f.Size, s.maxSize))
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func (s *paneService) Upload(ctx context.Context, f UploadFile, ownerID string) (_ *UploadResult, err error) {
	ctx, span := tracer.Start(ctx, "PaneService.Upload", trace.WithAttributes(
		attribute.String("pane.owner_id", ownerID),
		attribute.String("pane.original_name", f.Filename),
	))
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return nil, &ValidationError{Violations: []string{"owner is required"}}
	}
	if err := s.ValidateUpload(f); err != nil {
		return nil, err
	}

	// The body is buffered so a lost id race can retry the blob write.
	data, err := io.ReadAll(io.LimitReader(f.Content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, &ValidationError{Violations: []string{fmt.Sprintf("file exceeds the %d byte limit", s.maxSize)}}
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		id, err := s.ids.Generate(ctx)
		if err != nil {
			return nil, &UpstreamError{Op: "allocate pane id", Err: err}
		}

		p, err := s.create(ctx, id, data, f.Filename, ownerID)
		if errors.Is(err, repository.ErrConflict) {
			s.log.WarnContext(ctx, "pane id taken between check and create, retrying",
				"pane_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.metrics.Uploaded()
		span.SetAttributes(attribute.String("pane.id", p.ID))
		s.log.InfoContext(ctx, "pane uploaded",
			"pane_id", p.ID, "owner_id", ownerID, "size_bytes", p.SizeBytes, "expires_at", p.ExpiresAt)
		return &UploadResult{
			ID:        p.ID,
			ShareURL:  s.ShareURL(p.ID),
			ExpiresAt: p.ExpiresAt,
		}, nil
	}
	return nil, &UpstreamError{Op: "create pane metadata", Err: repository.ErrConflict}
}

// create writes the blob and then the metadata for id. The blob write is
// create-only, so a taken key never replaces another pane's document; it is
// reported as repository.ErrConflict without touching metadata. Once the
// blob is ours, any metadata failure, a conflict included, rolls it back.
func (s *paneService) create(ctx context.Context, id string, data []byte, originalName, ownerID string) (*model.Pane, error) {
	key := model.BlobPath(id)

	if _, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: model.DocumentContentType,
		Metadata: map[string]string{
			"original-filename": originalName,
		},
		IfAbsent: true,
	}); err != nil {
		if errors.Is(err, storage.ErrObjectExists) {
			return nil, repository.ErrConflict
		}
		return nil, &UpstreamError{Op: "upload to storage", Err: err}
	}

	now := s.now().UTC()
	p := &model.Pane{
		ID:           id,
		OwnerID:      ownerID,
		OriginalName: originalName,
		SizeBytes:    int64(len(data)),
		ContentType:  model.DocumentContentType,
		BlobPath:     key,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		ViewCount:    0,
		IsPublic:     true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.log.ErrorContext(ctx, "rollback delete failed, blob orphaned",
				"pane_id", id, "blob_path", key, "err", delErr)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		return nil, &UpstreamError{Op: "create pane metadata", Err: err}
	}
	return p, nil
}

func (s *paneService) GetMetadata(ctx context.Context, id string) (_ *model.Pane, err error) {
	ctx, span := tracer.Start(ctx, "PaneService.GetMetadata", trace.WithAttributes(attribute.String("pane.id", id)))
	defer func() { endSpan(span, err) }()

	return s.getMetadata(ctx, id)
}

func (s *paneService) getMetadata(ctx context.Context, id string) (*model.Pane, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, &UpstreamError{Op: "find pane", Err: err}
	}

	if p.Removed() {
		if p.RemovedReason == model.RemovalExpired {
			return nil, ErrGone
		}
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	if model.Classify(p, now) == model.StateExpired {
		// Lazy delete. A concurrent sweep may already be removing it; either way the pane is gone.
		if err := s.remove(ctx, p, model.RemovalExpired, now, metrics.PathLazy); err != nil {
			s.log.DebugContext(ctx, "lazy delete of expired pane failed", "pane_id", id, "err", err)
		}
		return nil, ErrGone
	}
	return p, nil
}

func (s *paneService) GetContent(ctx context.Context, id string) (_ *Content, err error) {
	ctx, span := tracer.Start(ctx, "PaneService.GetContent", trace.WithAttributes(attribute.String("pane.id", id)))
	defer func() { endSpan(span, err) }()

	p, err := s.getMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	s.countView(ctx, p.ID)

	rc, _, err := s.store.Get(ctx, p.BlobPath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			s.log.WarnContext(ctx, "pane metadata has no blob", "pane_id", p.ID, "blob_path", p.BlobPath)
			return nil, ErrNotFound
		}
		return nil, &UpstreamError{Op: "get blob", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &UpstreamError{Op: "read blob", Err: err}
	}
	return &Content{Pane: p, Data: data}, nil
}

// countView increments the view count without blocking the caller. The
// increment outlives the request context; its failure is only logged.
func (s *paneService) countView(ctx context.Context, id string) {
	ctx = context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.repo.IncrementViewCount(ctx, id); err != nil {
			s.metrics.IncrementFailed()
			s.log.WarnContext(ctx, "view count increment failed", "pane_id", id, "err", err)
		}
	}()
}

func (s *paneService) ListByOwner(ctx context.Context, ownerID string) (_ *PaneListResult, err error) {
	ctx, span := tracer.Start(ctx, "PaneService.ListByOwner", trace.WithAttributes(attribute.String("pane.owner_id", ownerID)))
	defer func() { endSpan(span, err) }()

	if ownerID == "" {
		return nil, &ValidationError{Violations: []string{"owner is required"}}
	}

	now := s.now().UTC()
	items, err := s.repo.ListByOwner(ctx, ownerID, now, ListLimit)
	if err != nil {
		return nil, &UpstreamError{Op: "list panes", Err: err}
	}

	panes := make([]model.Pane, 0, len(items))
	for i := range items {
		if model.Classify(&items[i], now) != model.StateActive {
			continue
		}
		panes = append(panes, items[i])
		if len(panes) == ListLimit {
			break
		}
	}
	return &PaneListResult{Panes: panes, Total: len(panes)}, nil
}

func (s *paneService) Delete(ctx context.Context, id, callerID string, isSystem bool) (err error) {
	ctx, span := tracer.Start(ctx, "PaneService.Delete", trace.WithAttributes(
		attribute.String("pane.id", id),
		attribute.Bool("pane.system", isSystem),
	))
	defer func() { endSpan(span, err) }()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return &UpstreamError{Op: "find pane", Err: err}
	}
	if err != nil || p.Removed() {
		if isSystem {
			return nil
		}
		return ErrNotFound
	}

	if !isSystem && p.OwnerID != callerID {
		return ErrForbidden
	}

	path := metrics.PathOwner
	if isSystem {
		path = pathSystem
	}
	now := s.now().UTC()
	if err := s.remove(ctx, p, model.RemovalReasonAt(p, now), now, path); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "pane deleted", "pane_id", id, "caller_id", callerID, "system", isSystem)
	return nil
}
