// Package database centralises sqlx connection helpers.  The driver is
// go-sql-driver/mysql (MySQL 8 or MariaDB 10.6+; the job queue relies on
// `FOR UPDATE SKIP LOCKED`).
//
// Public entry points:
//
//	Open(ctx, dsn, password)              – default pool sizes.
//	OpenWithOptions(ctx, dsn, pw, opts)   – fine-grained control + retries.
//	WithTx(ctx, db, fn)                   – commit/rollback wrapper.
//	Migrate(db)                           – apply embedded schema migrations.
//
// Open helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Options tunes the pool and the bootstrap retry policy.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // doubled after each failed attempt
}

// DefaultOptions: 15 max open, 5 idle, 30-minute lifetime, two retries.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    15,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		Retries:         2,
		RetryBackoff:    500 * time.Millisecond,
	}
}

// Open returns a *sqlx.DB with DefaultOptions.
func Open(ctx context.Context, dsn, password string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, dsn, password, DefaultOptions())
}

// OpenWithOptions normalises the DSN, opens the pool, and pings until it
// answers or the retries are exhausted.
func OpenWithOptions(ctx context.Context, dsn, password string, opts Options) (*sqlx.DB, error) {
	normalized, err := NormalizeDSN(dsn, password)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("mysql", normalized)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	backoff := opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		zap.S().Warnw("database ping failed, retrying",
			"attempt", attempt+1, "backoff", backoff, "err", err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = db.Close()
	return nil, fmt.Errorf("ping database: %w", err)
}

// NormalizeDSN injects the (Vault-resolved) password and forces the driver
// flags the stores rely on: parseTime so DATETIME scans into time.Time, UTC
// so published_at ordering is stable across hosts, and clientFoundRows so
// RowsAffected counts matched rows (an UPDATE that changes nothing is not
// "not found").
func NormalizeDSN(dsn, password string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	if password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	return cfg.FormatDSN(), nil
}

// WithTx runs fn inside a transaction.  fn's error (or a panic) rolls back;
// otherwise the transaction commits.
func WithTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
