package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"panes/internal/metrics"
	"panes/internal/model"
	"panes/internal/repository"
	"panes/internal/storage"
)

// DefaultSweepBatchSize is the number of expired panes removed per batch.
const DefaultSweepBatchSize = 100

// SweepResult summarizes one sweeper run.
type SweepResult struct {
	Deleted int64         `json:"deleted"`
	Errors  int64         `json:"errors"`
	Elapsed time.Duration `json:"-"`
}

// Sweeper removes expired panes in batches.
type Sweeper interface {
	// Run removes every pane that had expired when the run started. A
	// listing failure stops the run; the partial counts are still returned.
	Run(ctx context.Context) (*SweepResult, error)
}

// SweeperOptions configures an ExpirationSweeper.
type SweeperOptions struct {
	BatchSize int
	Logger    *slog.Logger
	Metrics   *metrics.PaneMetrics
}

// ExpirationSweeper is the batch removal path for expired panes. It shares
// the removal logic of PaneService.
type ExpirationSweeper struct {
	remover

	batchSize int
	now       func() time.Time
}

// NewSweeper constructs an ExpirationSweeper.
func NewSweeper(store storage.Storage, repo repository.PaneRepository, opts SweeperOptions) *ExpirationSweeper {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultSweepBatchSize
	}
	return &ExpirationSweeper{
		remover: remover{
			store:   store,
			repo:    repo,
			log:     log.With("component", "sweeper"),
			metrics: opts.Metrics,
		},
		batchSize: batch,
		now:       time.Now,
	}
}

func (s *ExpirationSweeper) Run(ctx context.Context) (_ *SweepResult, err error) {
	ctx, span := tracer.Start(ctx, "Sweeper.Run")
	defer func() { endSpan(span, err) }()

	start := time.Now()
	now := s.now().UTC()
	res := &SweepResult{}

	defer func() {
		res.Elapsed = time.Since(start)
		span.SetAttributes(
			attribute.Int64("sweep.deleted", res.Deleted),
			attribute.Int64("sweep.errors", res.Errors),
		)
		s.metrics.SweepFinished(res.Elapsed, err != nil)
	}()

	for {
		batch, err := s.repo.ListExpired(ctx, now, s.batchSize)
		if err != nil {
			s.log.ErrorContext(ctx, "sweep: failed to list expired panes",
				"deleted", res.Deleted, "errors", res.Errors, "err", err)
			return res, &UpstreamError{Op: "list expired panes", Err: err}
		}
		if len(batch) == 0 {
			break
		}

		deleted, failed := s.removeBatch(ctx, batch, now)
		res.Deleted += deleted
		res.Errors += failed

		if len(batch) < s.batchSize {
			break
		}
		// Nothing in this batch was removed, so the next listing would return the same rows.
		if deleted == 0 {
			s.log.WarnContext(ctx, "sweep: stopping after a batch with no successful removals",
				"batch_size", len(batch))
			break
		}
	}

	s.log.InfoContext(ctx, "sweep completed",
		"deleted", res.Deleted, "errors", res.Errors, "elapsed", time.Since(start))
	return res, nil
}

// removeBatch removes every pane in batch concurrently and reports how many
// succeeded and failed. Per-item failures never abort the batch.
func (s *ExpirationSweeper) removeBatch(ctx context.Context, batch []model.Pane, now time.Time) (int64, int64) {
	var deleted, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i := range batch {
		p := &batch[i]
		g.Go(func() error {
			if err := s.remove(ctx, p, model.RemovalExpired, now, metrics.PathSweep); err != nil {
				failed.Add(1)
				s.log.WarnContext(ctx, "sweep: failed to remove pane", "pane_id", p.ID, "err", err)
				return nil
			}
			deleted.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return deleted.Load(), failed.Load()
}

// Start runs the sweeper at the given interval until ctx is done. Call in a goroutine.
func (s *ExpirationSweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("sweep scheduler started", "interval", interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.log.Warn("sweep: run ended early", "err", err)
			}
		}
	}
}

// StartBackground runs Start in a goroutine. The returned stop function
// cancels the loop and blocks until an in-flight run has returned, so the
// stores can be closed after it.
func (s *ExpirationSweeper) StartBackground(ctx context.Context, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}
