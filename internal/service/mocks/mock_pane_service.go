package mocks

import (
	"context"

	"panes/internal/model"
	"panes/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockPaneService struct {
	mock.Mock
}

var _ service.PaneService = (*MockPaneService)(nil)

func (m *MockPaneService) ValidateUpload(f service.UploadFile) error {
	args := m.Called(f)
	return args.Error(0)
}

func (m *MockPaneService) Upload(ctx context.Context, f service.UploadFile, ownerID string) (*service.UploadResult, error) {
	args := m.Called(ctx, f, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockPaneService) GetMetadata(ctx context.Context, id string) (*model.Pane, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pane), args.Error(1)
}

func (m *MockPaneService) GetContent(ctx context.Context, id string) (*service.Content, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Content), args.Error(1)
}

func (m *MockPaneService) ListByOwner(ctx context.Context, ownerID string) (*service.PaneListResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaneListResult), args.Error(1)
}

func (m *MockPaneService) Delete(ctx context.Context, id, callerID string, isSystem bool) error {
	args := m.Called(ctx, id, callerID, isSystem)
	return args.Error(0)
}

// ShareURL mirrors the real link format so tests need not stub it.
func (m *MockPaneService) ShareURL(id string) string {
	return "http://localhost:3000/v/" + id
}

func (m *MockPaneService) Wait() {}
