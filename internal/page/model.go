// internal/page/model.go
//
// `page` table row model.
//
// Context
// -------
// A page belongs to one site and optionally to one event.  Its content is
// the page-builder tree, stored as a JSON column and passed through to the
// renderer untouched; this service never interprets it.
//
// Schema reference: internal/database/migrations/000003_create_page.up.sql
package page

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the publication state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Tree is the serialized content structure.  It scans from and marshals to
// raw JSON without decoding.
type Tree []byte

// EmptyTree is stored when a page is created without content.
var EmptyTree = Tree(`{}`)

// Scan implements sql.Scanner.  The driver's buffer is copied.
func (t *Tree) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = nil
	case []byte:
		*t = append(Tree(nil), v...)
	case string:
		*t = Tree(v)
	default:
		return fmt.Errorf("page.Tree: cannot scan %T", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (t Tree) Value() (driver.Value, error) {
	if len(t) == 0 {
		return string(EmptyTree), nil
	}
	return string(t), nil
}

// MarshalJSON emits the stored document verbatim.
func (t Tree) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return t, nil
}

// UnmarshalJSON keeps a copy of the raw document.
func (t *Tree) UnmarshalJSON(b []byte) error {
	if t == nil {
		return errors.New("page.Tree: UnmarshalJSON on nil pointer")
	}
	*t = append((*t)[:0], b...)
	return nil
}

// Valid reports whether the tree is well-formed JSON.
func (t Tree) Valid() bool { return len(t) == 0 || json.Valid(t) }

// Record mirrors one row in the `page` table.
type Record struct {
	ID          string     `db:"id"           json:"id"`
	SiteID      string     `db:"site_id"      json:"site_id"`
	EventID     *string    `db:"event_id"     json:"event_id,omitempty"`
	Name        string     `db:"name"         json:"name"`
	Slug        string     `db:"slug"         json:"slug"`
	Tree        Tree       `db:"tree"         json:"tree"`
	Status      Status     `db:"status"       json:"status"`
	Version     int        `db:"version"      json:"version"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"   json:"updated_at"`
}

// Published reports whether the page is live.
func (r *Record) Published() bool { return r.Status == StatusPublished }

// Ref is the short page reference carried in authorization results.
type Ref struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Ref returns the short reference for r.
func (r *Record) Ref() *Ref { return &Ref{ID: r.ID, Slug: r.Slug, Name: r.Name} }

// NewPage carries the fields accepted by Store.Create.
type NewPage struct {
	SiteID  string  `json:"site_id"  validate:"omitempty,uuid"`
	EventID *string `json:"event_id" validate:"omitempty,uuid"`
	Name    string  `json:"name"     validate:"required,max=255"`
	Slug    string  `json:"slug"     validate:"omitempty,max=100"`
	Tree    Tree    `json:"tree"`
}
