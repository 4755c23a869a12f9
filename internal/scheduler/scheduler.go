package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PriceRefresher stores current token prices.
type PriceRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// PoolSyncer brings daily pool snapshots up to date.
type PoolSyncer interface {
	Run(ctx context.Context) error
}

// Scheduler runs the periodic price refresh and pool sync jobs.
type Scheduler struct {
	Cron   *cron.Cron
	Prices PriceRefresher
	Pools  PoolSyncer
	Ctx    context.Context
	logger *zap.Logger
}

// NewScheduler creates a scheduler using six-field cron expressions. A job
// still running when its next tick fires is skipped.
func NewScheduler(ctx context.Context, prices PriceRefresher, pools PoolSyncer, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := zapCronLogger{logger: logger.Sugar()}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		Prices: prices,
		Pools:  pools,
		Ctx:    ctx,
		logger: logger,
	}
}

// RegisterAll registers the jobs that have both a schedule and a runner.
func (s *Scheduler) RegisterAll(priceCron, poolSyncCron string) error {
	if priceCron != "" && s.Prices != nil {
		if _, err := s.Cron.AddFunc(priceCron, s.refreshPrices); err != nil {
			return fmt.Errorf("register price refresh: %w", err)
		}
	}
	if poolSyncCron != "" && s.Pools != nil {
		if _, err := s.Cron.AddFunc(poolSyncCron, s.syncPools); err != nil {
			return fmt.Errorf("register pool sync: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.Cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// RunNow runs every configured job once, in order.
func (s *Scheduler) RunNow() {
	if s.Pools != nil {
		s.syncPools()
	}
	if s.Prices != nil {
		s.refreshPrices()
	}
}

func (s *Scheduler) refreshPrices() {
	n, err := s.Prices.Refresh(s.Ctx)
	if err != nil {
		s.logger.Error("price refresh failed", zap.Error(err))
		return
	}
	s.logger.Debug("price refresh done", zap.Int("prices", n))
}

func (s *Scheduler) syncPools() {
	if err := s.Pools.Run(s.Ctx); err != nil {
		s.logger.Error("pool sync failed", zap.Error(err))
	}
}

type zapCronLogger struct {
	logger *zap.SugaredLogger
}

func (l zapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l zapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
