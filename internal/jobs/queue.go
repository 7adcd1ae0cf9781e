// internal/jobs/queue.go
//
// Persisted background jobs on the `domain_job` table.
//
// Context
// -------
// Follow-up work triggered by a domain mutation (today: SSL activation
// after a successful DNS verification) is written to MySQL in the same
// transaction as the state change.  A restart therefore never loses a
// scheduled transition; the worker picks it up on the next poll.
//
// Workflow
// --------
//  1. Enqueue upserts one row per (domain_id, kind) with a run_after.
//  2. Claim locks due rows with `FOR UPDATE SKIP LOCKED`, marks them
//     `running`, and bumps attempts.  Concurrent workers never share a row.
//  3. The handler finishes with Complete, Retry (new run_after), or Fail.
//  4. Recover re-queues rows left `running` by a crashed process.
//
// Notes
// -----
//   - Re-enqueueing an existing (domain_id, kind) resets attempts, so a
//     fresh verification restarts the activation schedule.
package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/yanizio/eventsite/internal/database"
)

// Kind names a job type.
type Kind string

// KindSSLActivate flips a verified domain's certificate to active.
const KindSSLActivate Kind = "ssl_activate"

// State is the lifecycle of a job row.
type State string

const (
	StateQueued  State = "queued"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Job mirrors one row in `domain_job`.
type Job struct {
	ID          int64          `db:"id"`
	DomainID    string         `db:"domain_id"`
	Kind        Kind           `db:"kind"`
	State       State          `db:"state"`
	Attempts    int            `db:"attempts"`
	MaxAttempts int            `db:"max_attempts"`
	RunAfter    time.Time      `db:"run_after"`
	LastError   sql.NullString `db:"last_error"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Exhausted reports whether the job used its last attempt.
func (j *Job) Exhausted() bool { return j.Attempts >= j.MaxAttempts }

const selectCols = `id, domain_id, kind, state, attempts, max_attempts, run_after,
               last_error, created_at, updated_at`

// Queue wraps the control-plane pool.
type Queue struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewQueue returns a Queue bound to db.
func NewQueue(db *sqlx.DB) *Queue { return &Queue{db: db, now: time.Now} }

// Enqueue schedules kind for domainID after delay.  It joins a transaction
// carried in ctx.
func (q *Queue) Enqueue(ctx context.Context, domainID string, kind Kind, delay time.Duration, maxAttempts int) error {
	const stmt = `
        INSERT INTO domain_job (domain_id, kind, state, attempts, max_attempts, run_after)
        VALUES (?, ?, ?, 0, ?, ?)
        ON DUPLICATE KEY UPDATE
               state        = VALUES(state),
               attempts     = 0,
               max_attempts = VALUES(max_attempts),
               run_after    = VALUES(run_after),
               last_error   = NULL`
	runAfter := q.now().UTC().Add(delay)
	_, err := database.Conn(ctx, q.db).ExecContext(ctx, stmt, domainID, kind, StateQueued, maxAttempts, runAfter)
	if err != nil {
		return fmt.Errorf("enqueue %s %s: %w", kind, domainID, err)
	}
	return nil
}

// Claim locks up to limit due jobs and marks them running.
func (q *Queue) Claim(ctx context.Context, limit int) ([]Job, error) {
	var jobs []Job
	err := database.InTx(ctx, q.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, q.db)

		const sel = `
            SELECT ` + selectCols + `
            FROM   domain_job
            WHERE  state = ? AND run_after <= ?
            ORDER  BY run_after ASC
            LIMIT  ?
            FOR UPDATE SKIP LOCKED`
		if err := conn.SelectContext(ctx, &jobs, sel, StateQueued, q.now().UTC(), limit); err != nil {
			return fmt.Errorf("select due jobs: %w", err)
		}
		if len(jobs) == 0 {
			return nil
		}

		ids := make([]int64, len(jobs))
		for i := range jobs {
			ids[i] = jobs[i].ID
			jobs[i].State = StateRunning
			jobs[i].Attempts++
		}
		upd, args, err := sqlx.In(
			`UPDATE domain_job SET state = ?, attempts = attempts + 1 WHERE id IN (?)`,
			StateRunning, ids)
		if err != nil {
			return err
		}
		if _, err := conn.ExecContext(ctx, q.db.Rebind(upd), args...); err != nil {
			return fmt.Errorf("mark running: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Complete marks a job done.
func (q *Queue) Complete(ctx context.Context, id int64) error {
	return q.finish(ctx, id, StateDone, nil)
}

// Retry re-queues a job to run at runAfter, recording cause.
func (q *Queue) Retry(ctx context.Context, id int64, runAfter time.Time, cause error) error {
	const stmt = `UPDATE domain_job SET state = ?, run_after = ?, last_error = ? WHERE id = ?`
	_, err := database.Conn(ctx, q.db).ExecContext(ctx, stmt, StateQueued, runAfter.UTC(), errString(cause), id)
	if err != nil {
		return fmt.Errorf("retry job %d: %w", id, err)
	}
	return nil
}

// Fail parks a job permanently, recording cause.
func (q *Queue) Fail(ctx context.Context, id int64, cause error) error {
	return q.finish(ctx, id, StateFailed, cause)
}

// Recover re-queues jobs stuck in `running`.  Call once at worker start,
// before the first Claim.
func (q *Queue) Recover(ctx context.Context) (int64, error) {
	const stmt = `UPDATE domain_job SET state = ? WHERE state = ?`
	res, err := database.Conn(ctx, q.db).ExecContext(ctx, stmt, StateQueued, StateRunning)
	if err != nil {
		return 0, fmt.Errorf("recover jobs: %w", err)
	}
	return res.RowsAffected()
}

// ByDomain returns the job of kind for domainID, or nil when none exists.
func (q *Queue) ByDomain(ctx context.Context, domainID string, kind Kind) (*Job, error) {
	const sel = `SELECT ` + selectCols + ` FROM domain_job WHERE domain_id = ? AND kind = ? LIMIT 1`
	var j Job
	err := database.Conn(ctx, q.db).GetContext(ctx, &j, sel, domainID, kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("job by domain %s: %w", domainID, err)
	}
	return &j, nil
}

func (q *Queue) finish(ctx context.Context, id int64, st State, cause error) error {
	const stmt = `UPDATE domain_job SET state = ?, last_error = ? WHERE id = ?`
	_, err := database.Conn(ctx, q.db).ExecContext(ctx, stmt, st, errString(cause), id)
	if err != nil {
		return fmt.Errorf("finish job %d: %w", id, err)
	}
	return nil
}

func errString(err error) sql.NullString {
	if err == nil {
		return sql.NullString{}
	}
	msg := err.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	return sql.NullString{String: msg, Valid: true}
}
