package service

import (
	"context"
	"time"

	"github.com/boddenberg/customer-insights-bfa/internal/domain"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// SnapshotRefresher reloads the customer snapshot.
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*domain.SnapshotInfo, error)
}

// Refresher reloads the snapshot on a fixed interval. Runs never overlap.
type Refresher struct {
	target    SnapshotRefresher
	scheduler gocron.Scheduler
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRefresher schedules target.Refresh every interval. Each run is bounded
// by timeout when it is positive.
func NewRefresher(target SnapshotRefresher, interval, timeout time.Duration, logger *zap.Logger) (*Refresher, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	r := &Refresher{
		target:    target,
		scheduler: s,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(r.run),
		gocron.WithName("snapshot-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}
	return r, nil
}

// Start begins running the job.
func (r *Refresher) Start() {
	r.scheduler.Start()
	r.logger.Info("snapshot refresher started", zap.Duration("interval", r.interval))
}

// Shutdown stops the scheduler and waits for a running refresh to finish.
func (r *Refresher) Shutdown() error {
	return r.scheduler.Shutdown()
}

func (r *Refresher) run() {
	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	info, err := r.target.Refresh(ctx)
	if err != nil {
		r.logger.Error("scheduled snapshot refresh failed", zap.Error(err))
		return
	}
	r.logger.Info("scheduled snapshot refresh",
		zap.String("snapshot_id", info.ID),
		zap.Int("customers", info.Customers),
		zap.Duration("took", time.Since(start)),
	)
}
