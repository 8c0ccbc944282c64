package maintenance

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mileusna/crontab"
)

// CleanupFunc is the operation a Scheduler runs.
type CleanupFunc func(ctx context.Context, opts Options) (Report, error)

// Scheduler runs cleanup on a cron schedule. A tick that fires while the
// previous run is still going is skipped.
type Scheduler struct {
	cleanup  CleanupFunc
	schedule string
	opts     Options
	log      *slog.Logger

	ctab   *crontab.Crontab
	ctx    context.Context
	cancel context.CancelFunc
	busy   sync.Mutex
	wg     sync.WaitGroup
}

func NewScheduler(log *slog.Logger, cleanup CleanupFunc, schedule string, opts Options) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{cleanup: cleanup, schedule: schedule, opts: opts, log: log, ctx: context.Background()}
}

// Run registers the job and starts the cron ticker.
func (s *Scheduler) Run() error {
	s.ctx, s.cancel = context.WithCancel(s.ctx)
	s.ctab = crontab.New()
	if err := s.ctab.AddJob(s.schedule, s.tick); err != nil {
		s.ctab.Shutdown()
		s.cancel()
		return err
	}
	s.log.Info("cleanup scheduled", "schedule", s.schedule)
	return nil
}

// Stop halts the ticker, cancels a running cleanup and waits for it.
func (s *Scheduler) Stop() {
	if s.ctab == nil {
		return
	}
	s.ctab.Shutdown()
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) tick() {
	if s.ctx.Err() != nil {
		return
	}
	if !s.busy.TryLock() {
		s.log.Warn("previous cleanup still running, skipping tick")
		return
	}
	s.wg.Add(1)
	defer func() {
		s.busy.Unlock()
		s.wg.Done()
	}()
	rep, err := s.cleanup(s.ctx, s.opts)
	if err != nil {
		s.log.Error("scheduled cleanup", "operation_id", rep.OperationID, "err", err)
		return
	}
	s.log.Info("scheduled cleanup", "operation_id", rep.OperationID, "findings", len(rep.Findings))
}
