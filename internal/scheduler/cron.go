package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Jobs 定时任务
type Jobs struct {
	FetchFeeds func(ctx context.Context) error
	Reconcile  func(ctx context.Context) error
}

type Scheduler struct {
	cron             *cron.Cron
	jobs             Jobs
	logger           *slog.Logger
	fetchSpec        string
	reconcileSpec    string
	fetchEntryID     cron.EntryID
	reconcileEntryID cron.EntryID
	ctx              context.Context
	cancel           context.CancelFunc
}

// NewScheduler 创建调度器, 同一任务上一次未结束时跳过本次触发,
// 保证刷分复核不会并发执行
func NewScheduler(jobs Jobs, fetchSpec, reconcileSpec string, logger *slog.Logger) *Scheduler {
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		jobs:          jobs,
		logger:        logger,
		fetchSpec:     fetchSpec,
		reconcileSpec: reconcileSpec,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (s *Scheduler) Start() error {
	var err error

	if s.jobs.FetchFeeds != nil && s.fetchSpec != "" {
		// RSS抓取任务
		s.fetchEntryID, err = s.cron.AddFunc(s.fetchSpec, func() {
			s.run("fetch_feeds", s.jobs.FetchFeeds)
		})
		if err != nil {
			return fmt.Errorf("schedule feed fetch %q: %w", s.fetchSpec, err)
		}
	}

	if s.jobs.Reconcile != nil {
		// 刷分复核任务
		s.reconcileEntryID, err = s.cron.AddFunc(s.reconcileSpec, func() {
			s.run("reconcile_spam", s.jobs.Reconcile)
		})
		if err != nil {
			return fmt.Errorf("schedule spam reconcile %q: %w", s.reconcileSpec, err)
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "fetch", s.fetchSpec, "reconcile", s.reconcileSpec)
	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	start := time.Now()
	s.logger.Info("job started", "job", name)
	if err := job(s.ctx); err != nil {
		s.logger.Error("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Info("job finished", "job", name, "duration", time.Since(start))
}

// GetNextFetchTime 获取下次抓取时间
func (s *Scheduler) GetNextFetchTime() time.Time {
	if s.fetchEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.fetchEntryID).Next
}

// GetNextReconcileTime 获取下次复核时间
func (s *Scheduler) GetNextReconcileTime() time.Time {
	if s.reconcileEntryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.reconcileEntryID).Next
}

// Stop 停止调度并等待正在运行的任务结束
func (s *Scheduler) Stop() {
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.cancel()
}
