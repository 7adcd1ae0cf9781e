package jobs

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/metrics"
)

// Handler runs one job.  Returning an error schedules a retry unless the
// error is wrapped with Permanent or attempts are exhausted.
type Handler func(ctx context.Context, j Job) error

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error { return permanentError{err} }

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Backoff returns the delay before attempt n+1 after n failed attempts:
// base·2^(n-1), capped at max.
func Backoff(n int, base, max time.Duration) time.Duration {
	if n < 1 {
		n = 1
	}
	d := base
	for i := 1; i < n; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

type jobStore interface {
	Claim(ctx context.Context, limit int) ([]Job, error)
	Complete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, runAfter time.Time, cause error) error
	Fail(ctx context.Context, id int64, cause error) error
	Recover(ctx context.Context) (int64, error)
}

// Worker polls the queue and dispatches jobs to handlers by kind.
type Worker struct {
	store       jobStore
	handlers    map[Kind]Handler
	interval    time.Duration
	batch       int
	backoffBase time.Duration
	backoffMax  time.Duration
	now         func() time.Time
}

// NewWorker returns a worker polling store every interval for up to batch
// due jobs.
func NewWorker(store jobStore, interval time.Duration, batch int) *Worker {
	return &Worker{
		store:       store,
		handlers:    make(map[Kind]Handler),
		interval:    interval,
		batch:       batch,
		backoffBase: 30 * time.Second,
		backoffMax:  30 * time.Minute,
		now:         time.Now,
	}
}

// Handle registers h for kind.  Call before Run.
func (w *Worker) Handle(kind Kind, h Handler) { w.handlers[kind] = h }

// Run recovers stale jobs, then polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if n, err := w.store.Recover(ctx); err != nil {
		return err
	} else if n > 0 {
		zap.S().Infow("re-queued interrupted jobs", "count", n)
	}

	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// RunOnce claims one batch and processes it sequentially.  It returns the
// number of jobs handled.
func (w *Worker) RunOnce(ctx context.Context) int {
	jobs, err := w.store.Claim(ctx, w.batch)
	if err != nil {
		if ctx.Err() == nil {
			zap.S().Errorw("claim jobs", "err", err)
		}
		return 0
	}
	for _, j := range jobs {
		w.process(ctx, j)
	}
	return len(jobs)
}

func (w *Worker) process(ctx context.Context, j Job) {
	log := zap.S().With("job_id", j.ID, "kind", j.Kind, "domain_id", j.DomainID, "attempt", j.Attempts)

	h, ok := w.handlers[j.Kind]
	if !ok {
		log.Errorw("no handler for job kind")
		w.record(j.Kind, "failed")
		if err := w.store.Fail(ctx, j.ID, errors.New("no handler for kind "+string(j.Kind))); err != nil {
			log.Errorw("mark job failed", "err", err)
		}
		return
	}

	runErr := h(ctx, j)
	switch {
	case runErr == nil:
		w.record(j.Kind, "ok")
		if err := w.store.Complete(ctx, j.ID); err != nil {
			log.Errorw("mark job done", "err", err)
		}
	case IsPermanent(runErr) || j.Exhausted():
		w.record(j.Kind, "failed")
		log.Warnw("job failed permanently", "err", runErr)
		if err := w.store.Fail(ctx, j.ID, runErr); err != nil {
			log.Errorw("mark job failed", "err", err)
		}
	default:
		w.record(j.Kind, "retry")
		next := w.now().Add(Backoff(j.Attempts, w.backoffBase, w.backoffMax))
		log.Infow("job will retry", "err", runErr, "run_after", next)
		if err := w.store.Retry(ctx, j.ID, next, runErr); err != nil {
			log.Errorw("re-queue job", "err", err)
		}
	}
}

func (w *Worker) record(kind Kind, result string) {
	metrics.JobRunsTotal.WithLabelValues(string(kind), result).Inc()
}
