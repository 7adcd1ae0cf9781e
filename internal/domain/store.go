// internal/domain/store.go
//
// Domain-table query helpers.
//
// Context
// -------
// Store is the registry behind the authorization chain (ByHost) and the
// admin mutation operations.  Every method resolves its connection with
// database.Conn, so a caller holding a transaction in ctx (Service.Verify,
// Store.Update) gets all statements on the same tx.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - ByHost expects an already-normalised host.
//   - MySQL duplicate-key errors (1062) on host map to ErrHostTaken.
package domain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/eventsite/internal/database"
)

var (
	// ErrNotFound is returned when no domain row matches.
	ErrNotFound = errors.New("domain not found")
	// ErrHostTaken is returned when the host is already registered.
	ErrHostTaken = errors.New("host already registered")
)

const mysqlDuplicateKey = 1062

const selectCols = `id, site_id, host, type, dns_status, ssl_status, is_primary,
               verified_at, created_at, updated_at`

// Store wraps the control-plane pool.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// ByHost performs the exact-match registry lookup.
func (s *Store) ByHost(ctx context.Context, host string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   domain
        WHERE  host = ?
        LIMIT  1`
	return s.getOne(ctx, q, host)
}

// ByID fetches a domain by primary key.
func (s *Store) ByID(ctx context.Context, id string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   domain
        WHERE  id = ?
        LIMIT  1`
	return s.getOne(ctx, q, id)
}

// ListBySite returns every domain of a site, primary first.
func (s *Store) ListBySite(ctx context.Context, siteID string) ([]Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   domain
        WHERE  site_id = ?
        ORDER  BY is_primary DESC, host ASC`
	rows := make([]Record, 0, 4)
	if err := database.Conn(ctx, s.db).SelectContext(ctx, &rows, q, siteID); err != nil {
		return nil, fmt.Errorf("domain.ListBySite %s: %w", siteID, err)
	}
	return rows, nil
}

// ListByDNSStatus returns up to limit domains in any of the given states,
// least recently touched first.  Used by the re-verification schedule.
func (s *Store) ListByDNSStatus(ctx context.Context, limit int, statuses ...DNSStatus) ([]Record, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In(`
        SELECT `+selectCols+`
        FROM   domain
        WHERE  dns_status IN (?)
        ORDER  BY updated_at ASC
        LIMIT  ?`, statuses, limit)
	if err != nil {
		return nil, err
	}
	var rows []Record
	if err := database.Conn(ctx, s.db).SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("domain.ListByDNSStatus: %w", err)
	}
	return rows, nil
}

// Create inserts rec with a fresh id.  The first domain of a site becomes
// its primary; the site's primary rows are locked so two concurrent first
// inserts cannot both claim it.
func (s *Store) Create(ctx context.Context, siteID, host string, typ Type) (*Record, error) {
	id := uuid.NewString()
	err := database.InTx(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)

		var primaries int
		const countQ = `SELECT COUNT(*) FROM domain WHERE site_id = ? AND is_primary = 1 FOR UPDATE`
		if err := conn.GetContext(ctx, &primaries, countQ, siteID); err != nil {
			return fmt.Errorf("count primaries: %w", err)
		}

		const insQ = `
            INSERT INTO domain (id, site_id, host, type, dns_status, ssl_status, is_primary)
            VALUES (?, ?, ?, ?, ?, ?, ?)`
		_, err := conn.ExecContext(ctx, insQ, id, siteID, host, typ, DNSPending, SSLPending, primaries == 0)
		if err != nil {
			var me *mysql.MySQLError
			if errors.As(err, &me) && me.Number == mysqlDuplicateKey {
				return ErrHostTaken
			}
			return fmt.Errorf("insert domain: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ByID(ctx, id)
}

// Update applies p atomically.  Setting IsPrimary=true clears the flag on
// every other domain of the same site in the same statement, so the site
// ends with exactly one primary even under concurrent swaps.
func (s *Store) Update(ctx context.Context, id string, p Patch) (*Record, error) {
	err := database.InTx(ctx, s.db, func(ctx context.Context) error {
		conn := database.Conn(ctx, s.db)

		var siteID string
		const lockQ = `SELECT site_id FROM domain WHERE id = ? FOR UPDATE`
		if err := conn.GetContext(ctx, &siteID, lockQ, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock domain: %w", err)
		}

		sets := make([]string, 0, 3)
		args := make([]any, 0, 4)
		if p.Type != nil {
			sets, args = append(sets, "type = ?"), append(args, *p.Type)
		}
		if p.DNSStatus != nil {
			sets, args = append(sets, "dns_status = ?"), append(args, *p.DNSStatus)
			if *p.DNSStatus == DNSVerified {
				sets = append(sets, "verified_at = COALESCE(verified_at, UTC_TIMESTAMP(6))")
			}
		}
		if p.SSLStatus != nil {
			sets, args = append(sets, "ssl_status = ?"), append(args, *p.SSLStatus)
		}
		if len(sets) > 0 {
			q := `UPDATE domain SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
			if _, err := conn.ExecContext(ctx, q, append(args, id)...); err != nil {
				return fmt.Errorf("update domain: %w", err)
			}
		}

		if p.IsPrimary != nil {
			if *p.IsPrimary {
				const swapQ = `UPDATE domain SET is_primary = (id = ?) WHERE site_id = ?`
				if _, err := conn.ExecContext(ctx, swapQ, id, siteID); err != nil {
					return fmt.Errorf("swap primary: %w", err)
				}
			} else {
				const clearQ = `UPDATE domain SET is_primary = 0 WHERE id = ?`
				if _, err := conn.ExecContext(ctx, clearQ, id); err != nil {
					return fmt.Errorf("clear primary: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ByID(ctx, id)
}

// RecordVerification stores the outcome of a DNS check.  Success moves SSL
// to provisioning unless a certificate is already active; failure leaves
// the SSL state alone.
func (s *Store) RecordVerification(ctx context.Context, id string, verified bool, at time.Time) error {
	var (
		res sql.Result
		err error
	)
	conn := database.Conn(ctx, s.db)
	if verified {
		const q = `
            UPDATE domain
            SET    dns_status  = ?,
                   ssl_status  = IF(ssl_status = ?, ssl_status, ?),
                   verified_at = ?
            WHERE  id = ?`
		res, err = conn.ExecContext(ctx, q, DNSVerified, SSLActive, SSLProvisioning, at, id)
	} else {
		const q = `UPDATE domain SET dns_status = ? WHERE id = ?`
		res, err = conn.ExecContext(ctx, q, DNSFailed, id)
	}
	if err != nil {
		return fmt.Errorf("record verification %s: %w", id, err)
	}
	return requireRow(res)
}

// ActivateSSL flips a provisioning certificate to active.  It reports false
// when the row is no longer verified/provisioning (deleted, overridden, or
// already active).
func (s *Store) ActivateSSL(ctx context.Context, id string) (bool, error) {
	const q = `
        UPDATE domain
        SET    ssl_status = ?
        WHERE  id = ? AND dns_status = ? AND ssl_status = ?`
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, q, SSLActive, id, DNSVerified, SSLProvisioning)
	if err != nil {
		return false, fmt.Errorf("activate ssl %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// Delete removes a domain row.  Pending jobs go with it (ON DELETE CASCADE).
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM domain WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", id, err)
	}
	return requireRow(res)
}

func (s *Store) getOne(ctx context.Context, q string, arg any) (*Record, error) {
	var rec Record
	if err := database.Conn(ctx, s.db).GetContext(ctx, &rec, q, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("domain lookup %v: %w", arg, err)
	}
	return &rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
