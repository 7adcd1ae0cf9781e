// internal/site/repository.go
//
// Site-table query helpers.
//
// Context
// -------
// Sites are created explicitly by admin tooling or implicitly when a page
// is created without a site.  The implicit case uses the configured
// default site id (tenant.default_site_id) and is idempotent, so every
// process may call EnsureDefault at boot without coordination.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - ErrNotFound is returned for sql.ErrNoRows; other errors are wrapped.
package site

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when no site row matches.
var ErrNotFound = errors.New("site not found")

// DefaultName labels the auto-provisioned default site.
const DefaultName = "Default site"

const selectCols = `id, name, status, created_at, updated_at`

// Store wraps the control-plane pool.
type Store struct {
	db *sqlx.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sqlx.DB) *Store { return &Store{db: db} }

// ByID fetches a single site row.
func (s *Store) ByID(ctx context.Context, id string) (*Record, error) {
	const q = `SELECT ` + selectCols + ` FROM site WHERE id = ? LIMIT 1`
	var rec Record
	if err := s.db.GetContext(ctx, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("site.ByID %s: %w", id, err)
	}
	return &rec, nil
}

// Create inserts a new active site and returns it.
func (s *Store) Create(ctx context.Context, name string) (*Record, error) {
	id := uuid.NewString()
	const q = `INSERT INTO site (id, name, status) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, name, StatusActive); err != nil {
		return nil, fmt.Errorf("site.Create: %w", err)
	}
	return s.ByID(ctx, id)
}

// EnsureDefault makes sure the default site exists and returns it.
func (s *Store) EnsureDefault(ctx context.Context, id string) (*Record, error) {
	const q = `INSERT IGNORE INTO site (id, name, status) VALUES (?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, DefaultName, StatusActive); err != nil {
		return nil, fmt.Errorf("site.EnsureDefault: %w", err)
	}
	return s.ByID(ctx, id)
}

// CountActive is used as an early sanity check at boot.
func (s *Store) CountActive(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM site WHERE status = ?`, StatusActive)
	return n, err
}
