// internal/page/store.go
//
// Page-table query helpers, including the site-to-page resolver.
//
// Context
// -------
// The schema does not stop a site from having several published pages.
// PublishedBySite therefore applies an explicit, total ordering and picks
// the first row:
//
//	published_at DESC, version DESC, id DESC
//
// so the most recently published page wins and equal timestamps still
// resolve deterministically.
//
// Notes
// -----
//   - Column list matches the fields in `Record`; update both together.
//   - Create provisions the configured default site when no site is given.
package page

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/eventsite/internal/database"
	"github.com/yanizio/eventsite/internal/site"
	"github.com/yanizio/eventsite/internal/validate"
)

var (
	// ErrNotFound is returned when no page row matches.
	ErrNotFound = errors.New("page not found")
	// ErrSlugTaken is returned when the slug is already used.
	ErrSlugTaken = errors.New("slug already in use")
)

const selectCols = `id, site_id, event_id, name, slug, tree, status, version,
               published_at, created_at, updated_at`

// Sites is the slice of site.Store that page creation needs.
type Sites interface {
	ByID(ctx context.Context, id string) (*site.Record, error)
	EnsureDefault(ctx context.Context, id string) (*site.Record, error)
}

// Store wraps the control-plane pool.
type Store struct {
	db            *sqlx.DB
	sites         Sites
	defaultSiteID string
	now           func() time.Time
}

// NewStore returns a Store.  defaultSiteID is tenant.default_site_id.
func NewStore(db *sqlx.DB, sites Sites, defaultSiteID string) *Store {
	return &Store{db: db, sites: sites, defaultSiteID: defaultSiteID, now: time.Now}
}

// PublishedBySite returns the site's live page or ErrNotFound.
func (s *Store) PublishedBySite(ctx context.Context, siteID string) (*Record, error) {
	const q = `
        SELECT ` + selectCols + `
        FROM   page
        WHERE  site_id = ? AND status = ?
        ORDER  BY published_at DESC, version DESC, id DESC
        LIMIT  1`
	return s.getOne(ctx, q, siteID, StatusPublished)
}

// ByID fetches a page by primary key.
func (s *Store) ByID(ctx context.Context, id string) (*Record, error) {
	const q = `SELECT ` + selectCols + ` FROM page WHERE id = ? LIMIT 1`
	return s.getOne(ctx, q, id)
}

// Create inserts a draft page.
func (s *Store) Create(ctx context.Context, in NewPage) (*Record, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !in.Tree.Valid() {
		return nil, validate.Field("tree", "must be valid JSON")
	}

	siteID := in.SiteID
	if siteID == "" {
		def, err := s.sites.EnsureDefault(ctx, s.defaultSiteID)
		if err != nil {
			return nil, fmt.Errorf("default site: %w", err)
		}
		siteID = def.ID
	} else if _, err := s.sites.ByID(ctx, siteID); err != nil {
		if errors.Is(err, site.ErrNotFound) {
			return nil, validate.Field("site_id", "site does not exist")
		}
		return nil, err
	}

	slug := in.Slug
	if slug == "" {
		slug = MakeSlug(in.Name)
	} else if !IsSlug(slug) {
		return nil, validate.Field("slug", "must contain only a-z, 0-9 and '-'")
	}

	tree := in.Tree
	if len(tree) == 0 {
		tree = EmptyTree
	}

	id := uuid.NewString()
	const q = `
        INSERT INTO page (id, site_id, event_id, name, slug, tree, status, version)
        VALUES (?, ?, ?, ?, ?, ?, ?, 1)`
	_, err := database.Conn(ctx, s.db).ExecContext(ctx, q, id, siteID, in.EventID, in.Name, slug, tree, StatusDraft)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return nil, ErrSlugTaken
		}
		return nil, fmt.Errorf("page.Create: %w", err)
	}
	return s.ByID(ctx, id)
}

// Publish makes a page live.  Re-publishing bumps the version.
func (s *Store) Publish(ctx context.Context, id string) (*Record, error) {
	const q = `
        UPDATE page
        SET    version      = IF(status = ?, version + 1, version),
               status       = ?,
               published_at = ?
        WHERE  id = ?`
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, q, StatusPublished, StatusPublished, s.now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("page.Publish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.ByID(ctx, id)
}

// Unpublish returns a page to draft.
func (s *Store) Unpublish(ctx context.Context, id string) (*Record, error) {
	const q = `UPDATE page SET status = ? WHERE id = ?`
	res, err := database.Conn(ctx, s.db).ExecContext(ctx, q, StatusDraft, id)
	if err != nil {
		return nil, fmt.Errorf("page.Unpublish %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.ByID(ctx, id)
}

func (s *Store) getOne(ctx context.Context, q string, args ...any) (*Record, error) {
	var rec Record
	if err := database.Conn(ctx, s.db).GetContext(ctx, &rec, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("page lookup: %w", err)
	}
	return &rec, nil
}
