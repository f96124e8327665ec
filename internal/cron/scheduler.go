package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/config"
	"github.com/sujansaitej/Buddhi-cloud-sub001/internal/reconcile"
)

// Resyncer walks the provider listing and reconciles the overlay store.
type Resyncer interface {
	Resync(ctx context.Context) (reconcile.SyncStats, error)
}

// Scheduler runs the periodic overlay resync.
type Scheduler struct {
	cron    *cron.Cron
	cfg     config.SyncConfig
	syncer  Resyncer
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a new cron scheduler. A run that is still going when the next
// tick fires makes that tick a no-op.
func New(cfg config.SyncConfig, syncer Resyncer, logger *zap.Logger) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:     cfg,
		syncer:  syncer,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
}

// Start registers the resync job and starts the scheduler.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info("Resync job disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.logger.Debug("Running: overlay resync")
		s.RunOnce(context.Background())
	}); err != nil {
		return fmt.Errorf("invalid SYNC_SCHEDULE %q: %w", s.cfg.Schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Cron scheduler started", zap.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// RunOnce performs one resync pass and logs its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.syncer.Resync(ctx)
	if err != nil {
		s.logger.Error("Overlay resync failed",
			zap.Int("pages", stats.Pages),
			zap.Int("seeded", stats.Seeded),
			zap.Error(err),
		)
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
