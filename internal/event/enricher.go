// internal/event/enricher.go
//
// Single-query event enrichment.
//
// Context
// -------
// The renderer needs the event, its sessions, its speakers, and a couple
// of counters.  Fetching them separately would cost 1+N round trips, so
// aggregateQuery has MySQL assemble the whole payload as one JSON document
// (JSON_OBJECT + JSON_ARRAYAGG) which we decode in one step.
//
// Failure policy
// --------------
// Enrichment is optional.  Enrich never returns an error: any failure is
// logged, counted in event_enrich_errors_total, and degrades to nil so the
// page still renders without event-bound content.  Fetch exposes the
// error for diagnostics (domainctl).
//
// Notes
// -----
//   - When a Cache is configured, payloads are read through it.  Cache
//     errors are logged and bypassed; they never fail a fetch.
package event

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/metrics"
)

// ErrNotFound is returned by Fetch when the event does not exist.
var ErrNotFound = errors.New("event not found")

const aggregateQuery = `
    SELECT JSON_OBJECT(
             'id',        e.id,
             'name',      e.name,
             'starts_at', e.starts_at,
             'ends_at',   e.ends_at,
             'venue',     e.venue,
             'sessions',  COALESCE((
                 SELECT JSON_ARRAYAGG(JSON_OBJECT(
                          'id', s.id, 'title', s.title,
                          'starts_at', s.starts_at, 'ends_at', s.ends_at,
                          'room', s.room))
                 FROM   event_session s
                 WHERE  s.event_id = e.id), JSON_ARRAY()),
             'speakers',  COALESCE((
                 SELECT JSON_ARRAYAGG(JSON_OBJECT(
                          'id', sp.id, 'name', sp.name, 'title', sp.title,
                          'company', sp.company, 'photo_url', sp.photo_url))
                 FROM   event_speaker sp
                 WHERE  sp.event_id = e.id), JSON_ARRAY()),
             'stats',     JSON_OBJECT(
                 'registrations', (SELECT COUNT(*) FROM registration r
                                   WHERE r.event_id = e.id),
                 'checked_in',    (SELECT COUNT(*) FROM registration r
                                   WHERE r.event_id = e.id
                                     AND r.checked_in_at IS NOT NULL))
           ) AS payload
    FROM   event e
    WHERE  e.id = ?`

// Cache is an optional read-through store for payloads.
type Cache interface {
	Get(ctx context.Context, eventID string) (*Payload, bool, error)
	Set(ctx context.Context, eventID string, p *Payload) error
}

// Enricher fetches event payloads.
type Enricher struct {
	db    *sqlx.DB
	cache Cache
}

// NewEnricher returns an Enricher.  cache may be nil.
func NewEnricher(db *sqlx.DB, cache Cache) *Enricher {
	return &Enricher{db: db, cache: cache}
}

// Enrich returns the payload for eventID, or nil on any failure.
func (e *Enricher) Enrich(ctx context.Context, eventID string) *Payload {
	p, err := e.Fetch(ctx, eventID)
	if err != nil {
		metrics.EnrichErrorsTotal.Inc()
		zap.S().Warnw("event enrichment degraded", "event_id", eventID, "err", err)
		return nil
	}
	return p
}

// Fetch returns the payload for eventID.
func (e *Enricher) Fetch(ctx context.Context, eventID string) (*Payload, error) {
	if e.cache != nil {
		p, ok, err := e.cache.Get(ctx, eventID)
		switch {
		case err != nil:
			zap.S().Debugw("event cache get", "event_id", eventID, "err", err)
		case ok:
			return p, nil
		}
	}

	var raw []byte
	if err := e.db.GetContext(ctx, &raw, aggregateQuery, eventID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("event aggregate %s: %w", eventID, err)
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", eventID, err)
	}
	if p.Sessions == nil {
		p.Sessions = []Session{}
	}
	if p.Speakers == nil {
		p.Speakers = []Speaker{}
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, eventID, &p); err != nil {
			zap.S().Debugw("event cache set", "event_id", eventID, "err", err)
		}
	}
	return &p, nil
}
