package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs periodic tasks on cron expressions.  Overlapping runs of
// the same task are skipped.
type Scheduler struct {
	c   *cron.Cron
	ctx context.Context
}

// NewScheduler builds an idle scheduler.
func NewScheduler() *Scheduler {
	l := cronLogger{zap.S().Named("cron")}
	return &Scheduler{
		c: cron.New(
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: context.Background(),
	}
}

// Add registers fn under name.  spec accepts standard five-field cron
// expressions and descriptors such as "@every 15m".  fn receives the
// context passed to Run.
func (s *Scheduler) Add(name, spec string, fn func(ctx context.Context) error) error {
	_, err := s.c.AddFunc(spec, func() {
		if err := fn(s.ctx); err != nil {
			zap.S().Errorw("scheduled task failed", "task", name, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s %q: %w", name, spec, err)
	}
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits
// for running tasks to finish.  Call at most once.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.c.Start()
	<-ctx.Done()
	<-s.c.Stop().Done()
	return nil
}

// Len reports the number of registered entries.
func (s *Scheduler) Len() int { return len(s.c.Entries()) }

type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.s.Errorw(msg, append(kv, "err", err)...)
}
