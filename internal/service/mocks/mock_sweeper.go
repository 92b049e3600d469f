package mocks

import (
	"context"

	"panes/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockSweeper struct {
	mock.Mock
}

var _ service.Sweeper = (*MockSweeper)(nil)

func (m *MockSweeper) Run(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepResult), args.Error(1)
}
