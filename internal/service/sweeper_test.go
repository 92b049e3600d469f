package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"panes/internal/metrics"
	"panes/internal/model"
	repoMocks "panes/internal/repository/mocks"
	storeMocks "panes/internal/storage/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func expiredPanes(n int, prefix string) []model.Pane {
	out := make([]model.Pane, 0, n)
	for i := range n {
		id := fmt.Sprintf("%s%04d", prefix, i)
		out = append(out, model.Pane{
			ID:        id,
			OwnerID:   "u1",
			BlobPath:  model.BlobPath(id),
			CreatedAt: testNow.Add(-80 * time.Hour),
			ExpiresAt: testNow.Add(-8 * time.Hour),
		})
	}
	return out
}

func newMockedSweeper(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository, batch int, m *metrics.PaneMetrics) *ExpirationSweeper {
	s := NewSweeper(mStore, mRepo, SweeperOptions{BatchSize: batch, Metrics: m})
	s.now = func() time.Time { return testNow }
	return s
}

func TestExpirationSweeper_Run(t *testing.T) {
	tests := []struct {
		name        string
		batch       int
		setupMocks  func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository)
		wantDeleted int64
		wantErrors  int64
		wantLists   int
		wantErrMsg  string
	}{
		{
			name:  "nothing expired",
			batch: 3,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 3).Return([]model.Pane{}, nil).Once()
			},
			wantLists: 1,
		},
		{
			name:  "short batch ends the run",
			batch: 3,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 3).Return(expiredPanes(2, "a"), nil).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Twice()
				mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).Return(nil).Twice()
			},
			wantDeleted: 2,
			wantLists:   1,
		},
		{
			name:  "full batches continue until empty",
			batch: 2,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return(expiredPanes(2, "a"), nil).Once()
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return(expiredPanes(2, "b"), nil).Once()
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return([]model.Pane{}, nil).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Times(4)
				mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).Return(nil).Times(4)
			},
			wantDeleted: 4,
			wantLists:   3,
		},
		{
			name:  "per item failure is isolated",
			batch: 5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 5).Return(expiredPanes(3, "a"), nil).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Times(3)
				mRepo.On("Delete", mock.Anything, "a0001", model.RemovalExpired, testNow).Return(errors.New("db fail")).Once()
				mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).Return(nil).Twice()
			},
			wantDeleted: 2,
			wantErrors:  1,
			wantLists:   1,
		},
		{
			name:  "blob failure still removes metadata",
			batch: 5,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 5).Return(expiredPanes(1, "a"), nil).Once()
				mStore.On("Delete", mock.Anything, "panes/a0000.html").Return(errors.New("s3 down")).Once()
				mRepo.On("Delete", mock.Anything, "a0000", model.RemovalExpired, testNow).Return(nil).Once()
			},
			wantDeleted: 1,
			wantLists:   1,
		},
		{
			name:  "full batch with no successes stops",
			batch: 2,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return(expiredPanes(2, "a"), nil).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Twice()
				mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).
					Return(errors.New("db fail")).Twice()
			},
			wantErrors: 2,
			wantLists:  1,
		},
		{
			name:  "listing failure returns partial counts",
			batch: 2,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockPaneRepository) {
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return(expiredPanes(2, "a"), nil).Once()
				mRepo.On("ListExpired", mock.Anything, testNow, 2).Return(nil, errors.New("conn reset")).Once()
				mStore.On("Delete", mock.Anything, mock.Anything).Return(nil).Twice()
				mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).Return(nil).Twice()
			},
			wantDeleted: 2,
			wantLists:   2,
			wantErrMsg:  "list expired panes: conn reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockPaneRepository)
			s := newMockedSweeper(mStore, mRepo, tt.batch, nil)

			tt.setupMocks(mStore, mRepo)

			res, err := s.Run(context.Background())

			if tt.wantErrMsg != "" {
				assert.EqualError(t, err, tt.wantErrMsg)
				var upErr *UpstreamError
				assert.ErrorAs(t, err, &upErr)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, res)
			assert.Equal(t, tt.wantDeleted, res.Deleted)
			assert.Equal(t, tt.wantErrors, res.Errors)
			assert.Positive(t, res.Elapsed)

			mRepo.AssertNumberOfCalls(t, "ListExpired", tt.wantLists)
			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestExpirationSweeper_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewPaneMetrics(reg)
	require.NoError(t, err)

	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockPaneRepository)
	s := newMockedSweeper(mStore, mRepo, 10, m)

	mRepo.On("ListExpired", mock.Anything, testNow, 10).Return(expiredPanes(3, "a"), nil).Once()
	mStore.On("Delete", mock.Anything, mock.Anything).Return(nil)
	mRepo.On("Delete", mock.Anything, mock.Anything, model.RemovalExpired, testNow).Return(nil)

	_, err = s.Run(context.Background())
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "panes_sweep_runs_total", "panes_removed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "panes_removed_total" {
			assert.Equal(t, float64(3), mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestExpirationSweeper_Start(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockPaneRepository)
	s := newMockedSweeper(mStore, mRepo, 10, nil)

	ran := make(chan struct{}, 8)
	mRepo.On("ListExpired", mock.Anything, testNow, 10).
		Run(func(mock.Arguments) {
			select {
			case ran <- struct{}{}:
			default:
			}
		}).
		Return([]model.Pane{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 5*time.Millisecond)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestExpirationSweeper_StartBackgroundWaitsForRun(t *testing.T) {
	mStore := new(storeMocks.MockStorage)
	mRepo := new(repoMocks.MockPaneRepository)
	s := newMockedSweeper(mStore, mRepo, 10, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	mRepo.On("ListExpired", mock.Anything, testNow, 10).
		Run(func(mock.Arguments) {
			once.Do(func() { close(started) })
			<-release
		}).
		Return([]model.Pane{}, nil)

	stop := s.StartBackground(context.Background(), 5*time.Millisecond)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not return after the run finished")
	}
	mRepo.AssertExpectations(t)
}
