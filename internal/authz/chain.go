// internal/authz/chain.go
//
// Domain authorization chain.
//
// Context
// -------
// Every request for a custom host runs the same linear state machine:
//
//	START          normalise the host (strip scheme, port, `www.`)
//	LOOKUP_DOMAIN  registry miss            -> UNAUTHORIZED "Domain not found or inactive"
//	CHECK_DNS      dns_status != verified   -> UNAUTHORIZED "Domain DNS not verified"
//	RESOLVE_PAGE   no published page        -> UNAUTHORIZED "No published page found"
//	AUTHORIZED     {domain, page:{id, slug, name}}
//
// Each terminal state returns immediately.  DNS/SSL state is a stored fact
// here; re-verification is the job of domain.Service.
//
// Error policy
// ------------
// Business negatives are ordinary Results.  Only infrastructure failures
// (the database call itself) come back as errors, which callers surface as
// HTTP 500.
//
// Notes
// -----
//   - The chain is read-only and holds no state, so one Chain is shared by
//     every request.
package authz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/event"
	"github.com/yanizio/eventsite/internal/metrics"
	"github.com/yanizio/eventsite/internal/page"
)

// Human-readable reasons for unauthorized outcomes.
const (
	ReasonDomainNotFound  = "Domain not found or inactive"
	ReasonDNSNotVerified  = "Domain DNS not verified"
	ReasonNoPublishedPage = "No published page found"
)

// DomainLookup is the registry lookup; *domain.Store satisfies it.
type DomainLookup interface {
	ByHost(ctx context.Context, host string) (*domain.Record, error)
}

// PageResolver finds a site's live page; *page.Store satisfies it.
type PageResolver interface {
	PublishedBySite(ctx context.Context, siteID string) (*page.Record, error)
}

// Enricher attaches event data; *event.Enricher satisfies it.
type Enricher interface {
	Enrich(ctx context.Context, eventID string) *event.Payload
}

// Result is the outcome of Authorize, rendered as JSON by /check-domain.
type Result struct {
	Authorized bool             `json:"authorized"`
	Domain     string           `json:"domain"`
	Page       *page.Ref        `json:"page,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	DNSStatus  domain.DNSStatus `json:"dnsStatus,omitempty"`

	record *domain.Record
	page   *page.Record
}

// Record returns the matched domain row, or nil when none matched.
func (r Result) Record() *domain.Record { return r.record }

// Resolution is an authorized Result plus the content needed to render.
type Resolution struct {
	Result
	Content *page.Record
	Event   *event.Payload
}

// Chain sequences the lookups.
type Chain struct {
	domains DomainLookup
	pages   PageResolver
	events  Enricher
}

// NewChain wires a Chain.  events may be nil to disable enrichment.
func NewChain(domains DomainLookup, pages PageResolver, events Enricher) *Chain {
	return &Chain{domains: domains, pages: pages, events: events}
}

// Authorize decides whether host may serve content.
func (c *Chain) Authorize(ctx context.Context, host string) (Result, error) {
	start := time.Now()
	res, err := c.authorize(ctx, host)
	metrics.AuthorizeDuration.Observe(time.Since(start).Seconds())
	metrics.AuthorizeTotal.WithLabelValues(outcome(res, err)).Inc()
	return res, err
}

func (c *Chain) authorize(ctx context.Context, raw string) (Result, error) {
	host := domain.Normalize(raw)
	res := Result{Domain: host}

	if host == "" {
		res.Reason = ReasonDomainNotFound
		return res, nil
	}
	rec, err := c.domains.ByHost(ctx, host)
	if errors.Is(err, domain.ErrNotFound) {
		res.Reason = ReasonDomainNotFound
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("lookup domain %s: %w", host, err)
	}
	res.record = rec
	res.DNSStatus = rec.DNSStatus

	if !rec.Verified() {
		res.Reason = ReasonDNSNotVerified
		return res, nil
	}

	pg, err := c.pages.PublishedBySite(ctx, rec.SiteID)
	if errors.Is(err, page.ErrNotFound) {
		res.Reason = ReasonNoPublishedPage
		return res, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("resolve page for site %s: %w", rec.SiteID, err)
	}

	res.Authorized = true
	res.Page = pg.Ref()
	res.page = pg
	return res, nil
}

// Resolve authorizes host and, when authorized, attaches the page tree and
// the event payload.  Enrichment failures leave Event nil.
func (c *Chain) Resolve(ctx context.Context, host string) (Resolution, error) {
	res, err := c.Authorize(ctx, host)
	if err != nil || !res.Authorized {
		return Resolution{Result: res}, err
	}

	out := Resolution{Result: res, Content: res.page}
	if c.events != nil && res.page.EventID != nil && *res.page.EventID != "" {
		out.Event = c.events.Enrich(ctx, *res.page.EventID)
	}
	return out, nil
}

func outcome(r Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case r.Authorized:
		return "authorized"
	case r.Reason == ReasonDomainNotFound:
		return "domain_not_found"
	case r.Reason == ReasonDNSNotVerified:
		return "dns_not_verified"
	default:
		return "no_published_page"
	}
}
