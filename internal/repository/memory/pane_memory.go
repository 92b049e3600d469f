package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"panes/internal/model"
	"panes/internal/repository"
)

// PaneMemory is an in-process repository.PaneRepository. Every method takes
// the mutex, which gives the same single-record atomicity a real store offers.
type PaneMemory struct {
	mu    sync.RWMutex
	panes map[string]*model.Pane
}

// NewPaneMemory creates an empty in-memory pane repository.
func NewPaneMemory() *PaneMemory {
	return &PaneMemory{panes: make(map[string]*model.Pane)}
}

var _ repository.PaneRepository = (*PaneMemory)(nil)

func (m *PaneMemory) Create(_ context.Context, p *model.Pane) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.panes[p.ID]; ok {
		return repository.ErrConflict
	}
	m.panes[p.ID] = clonePane(p)
	return nil
}

func (m *PaneMemory) FindByID(_ context.Context, id string) (*model.Pane, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.panes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clonePane(p), nil
}

func (m *PaneMemory) Exists(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.panes[id]
	return ok, nil
}

func (m *PaneMemory) ListByOwner(_ context.Context, ownerID string, now time.Time, limit int) ([]model.Pane, error) {
	m.mu.RLock()
	items := make([]model.Pane, 0)
	for _, p := range m.panes {
		if p.Removed() || p.OwnerID != ownerID || !p.ExpiresAt.After(now) {
			continue
		}
		items = append(items, *clonePane(p))
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].ExpiresAt.Equal(items[j].ExpiresAt) {
			return items[i].ExpiresAt.Before(items[j].ExpiresAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return truncate(items, limit), nil
}

func (m *PaneMemory) ListExpired(_ context.Context, now time.Time, limit int) ([]model.Pane, error) {
	m.mu.RLock()
	items := make([]model.Pane, 0)
	for _, p := range m.panes {
		if p.Removed() || p.ExpiresAt.After(now) {
			continue
		}
		items = append(items, *clonePane(p))
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		return items[i].ExpiresAt.Before(items[j].ExpiresAt)
	})
	return truncate(items, limit), nil
}

func (m *PaneMemory) IncrementViewCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panes[id]
	if !ok || p.Removed() {
		return repository.ErrNotFound
	}
	p.ViewCount++
	return nil
}

func (m *PaneMemory) Delete(_ context.Context, id string, reason model.RemovalReason, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.panes[id]
	if !ok || p.Removed() {
		return nil
	}
	removedAt := at
	p.RemovedAt = &removedAt
	p.RemovedReason = reason
	return nil
}

func clonePane(p *model.Pane) *model.Pane {
	out := *p
	if p.RemovedAt != nil {
		t := *p.RemovedAt
		out.RemovedAt = &t
	}
	return &out
}

func truncate(items []model.Pane, limit int) []model.Pane {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
