package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/simd-tracker/src/logging"
	"github.com/stake-plus/simd-tracker/src/summaries"
	"github.com/stake-plus/simd-tracker/src/syncer"
)

// FullSyncer is the engine entry point the scheduler drives.
type FullSyncer interface {
	SyncAll(ctx context.Context, prOpts syncer.PROptions, discOpts syncer.DiscussionOptions) syncer.AllResult
}

// SummaryRunner runs one summary pass.
type SummaryRunner interface {
	Run(ctx context.Context) (summaries.Result, error)
}

var _ Module = (*Scheduler)(nil)

// Scheduler runs a full sync followed by the summary job on a fixed interval,
// starting immediately. Summaries may be nil.
type Scheduler struct {
	sync      FullSyncer
	summaries SummaryRunner
	interval  time.Duration
	log       *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(s FullSyncer, sum SummaryRunner, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		sync:      s,
		summaries: sum,
		interval:  interval,
		log:       logging.OrNop(log).Named("scheduler"),
	}
}

func (s *Scheduler) Name() string { return "scheduler" }

func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %v", s.interval)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(runCtx)
	}()
	return nil
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (s *Scheduler) Stop(context.Context) {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.Tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one scheduled pass.
func (s *Scheduler) Tick(ctx context.Context) {
	start := time.Now()
	res := s.sync.SyncAll(ctx, syncer.PROptions{}, syncer.DiscussionOptions{})
	if !res.Success() {
		s.log.Warn("scheduled sync had failures", zap.Any("errors", res.Errors))
	}
	if ctx.Err() != nil {
		return
	}
	if s.summaries != nil {
		out, err := s.summaries.Run(ctx)
		if err != nil {
			s.log.Warn("scheduled summaries failed", zap.Error(err))
		} else {
			s.log.Info("scheduled summaries", zap.Int("generated", out.Generated), zap.Int("candidates", out.Candidates))
		}
	}
	s.log.Info("scheduled run finished", zap.Duration("took", time.Since(start)))
}
