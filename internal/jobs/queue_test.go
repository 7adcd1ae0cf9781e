package jobs

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var fixedNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func newMockQueue(t *testing.T) (*Queue, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	q := NewQueue(sqlx.NewDb(raw, "mysql"))
	q.now = func() time.Time { return fixedNow }
	return q, mock
}

func TestEnqueueUpserts(t *testing.T) {
	q, mock := newMockQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO domain_job")).
		WithArgs("dom-1", KindSSLActivate, StateQueued, 8, fixedNow.Add(30*time.Second)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := q.Enqueue(context.Background(), "dom-1", KindSSLActivate, 30*time.Second, 8); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestClaimMarksRunning(t *testing.T) {
	q, mock := newMockQueue(t)
	cols := []string{"id", "domain_id", "kind", "state", "attempts", "max_attempts",
		"run_after", "last_error", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(StateQueued, fixedNow, 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(7, "dom-1", "ssl_activate", "queued", 0, 8, fixedNow, nil, fixedNow, fixedNow).
			AddRow(9, "dom-2", "ssl_activate", "queued", 2, 8, fixedNow, "boom", fixedNow, fixedNow))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE domain_job SET state = ?, attempts = attempts + 1 WHERE id IN (?, ?)")).
		WithArgs(StateRunning, int64(7), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	jobs, err := q.Claim(context.Background(), 10)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("got %d jobs", len(jobs))
	}
	if jobs[0].State != StateRunning || jobs[0].Attempts != 1 || jobs[1].Attempts != 3 {
		t.Fatalf("unexpected claim result %+v", jobs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestClaimEmpty(t *testing.T) {
	q, mock := newMockQueue(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM   domain_job")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	jobs, err := q.Claim(context.Background(), 5)
	if err != nil || len(jobs) != 0 {
		t.Fatalf("jobs=%v err=%v", jobs, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRetryAndFailRecordError(t *testing.T) {
	q, mock := newMockQueue(t)
	next := fixedNow.Add(time.Minute)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE domain_job SET state = ?, run_after = ?, last_error = ? WHERE id = ?")).
		WithArgs(StateQueued, next, "tls: timeout", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE domain_job SET state = ?, last_error = ? WHERE id = ?")).
		WithArgs(StateFailed, "gave up", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := q.Retry(context.Background(), 3, next, errors.New("tls: timeout")); err != nil {
		t.Fatal(err)
	}
	if err := q.Fail(context.Background(), 3, errors.New("gave up")); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestRecoverRequeuesRunning(t *testing.T) {
	q, mock := newMockQueue(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE domain_job SET state = ? WHERE state = ?")).
		WithArgs(StateQueued, StateRunning).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := q.Recover(context.Background())
	if err != nil || n != 4 {
		t.Fatalf("n=%d err=%v", n, err)
	}
}
