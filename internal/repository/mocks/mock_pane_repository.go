package mocks

import (
	"context"
	"time"

	"panes/internal/model"
	"panes/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockPaneRepository struct {
	mock.Mock
}

var _ repository.PaneRepository = (*MockPaneRepository)(nil)

func (m *MockPaneRepository) Create(ctx context.Context, p *model.Pane) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaneRepository) FindByID(ctx context.Context, id string) (*model.Pane, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pane), args.Error(1)
}

func (m *MockPaneRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaneRepository) ListByOwner(ctx context.Context, ownerID string, now time.Time, limit int) ([]model.Pane, error) {
	args := m.Called(ctx, ownerID, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Pane), args.Error(1)
}

func (m *MockPaneRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Pane, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Pane), args.Error(1)
}

func (m *MockPaneRepository) IncrementViewCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaneRepository) Delete(ctx context.Context, id string, reason model.RemovalReason, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}
