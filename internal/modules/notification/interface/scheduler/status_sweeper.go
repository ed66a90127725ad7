package scheduler

import (
	"context"
	"sync"
	"time"

	"Herald/pkg/zlog"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSweepSpec = "@every 1m"

// Sweeper persists announcement schedule transitions.
type Sweeper interface {
	SweepStatuses(ctx context.Context, now time.Time) (int, error)
}

// StatusSweeper runs the announcement sweep on a cron schedule. Reads never
// depend on it: the timeline resolves status at query time, the sweep only
// keeps the stored column honest for admin listings.
type StatusSweeper struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entryID cron.EntryID
	running bool
}

func NewStatusSweeper(sweeper Sweeper, spec string) *StatusSweeper {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	return &StatusSweeper{
		// 使用标准5段Cron表达式（不含秒），也接受 @every 描述符
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		sweeper: sweeper,
		spec:    spec,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
}

// Start schedules the sweep and runs it once right away.
func (s *StatusSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	id, err := s.cron.AddFunc(s.spec, s.RunOnce)
	if err != nil {
		zlog.Error("status sweeper schedule failed", zap.String("spec", s.spec), zap.Error(err))
		return err
	}
	s.entryID = id
	s.running = true
	s.cron.Start()
	go s.RunOnce()
	zlog.Info("status sweeper started", zap.String("spec", s.spec))
	return nil
}

// Stop halts scheduling and waits for a running sweep or ctx, whichever
// comes first.
func (s *StatusSweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entryID)
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *StatusSweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	moved, err := s.sweeper.SweepStatuses(ctx, s.now())
	if err != nil {
		zlog.Warn("announcement status sweep failed", zap.Int("moved", moved), zap.Error(err))
		return
	}
	if moved > 0 {
		zlog.Info("announcement statuses swept", zap.Int("moved", moved))
	}
}
