package site

import "time"

// Status values for Record.Status.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Record mirrors one row in the `site` table.  A site groups pages and is
// the unit a custom domain attaches to.  Suspended sites keep their rows
// but are treated as missing by Store.ByID callers that check Active().
type Record struct {
	ID        string    `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Status    string    `db:"status"     json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the site may serve pages.
func (r *Record) Active() bool { return r.Status == StatusActive }
