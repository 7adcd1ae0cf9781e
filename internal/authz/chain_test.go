package authz

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/event"
	"github.com/yanizio/eventsite/internal/page"
)

type fakeDomains struct {
	rows  map[string]*domain.Record
	err   error
	calls []string
}

func (f *fakeDomains) ByHost(_ context.Context, host string) (*domain.Record, error) {
	f.calls = append(f.calls, host)
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.rows[host]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r, nil
}

// fakePages returns the published page with the latest PublishedAt,
// mirroring the store's tie-break.
type fakePages struct {
	bySite map[string][]page.Record
	err    error
}

func (f *fakePages) PublishedBySite(_ context.Context, siteID string) (*page.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var best *page.Record
	for i := range f.bySite[siteID] {
		p := &f.bySite[siteID][i]
		if !p.Published() {
			continue
		}
		if best == nil || p.PublishedAt.After(*best.PublishedAt) {
			best = p
		}
	}
	if best == nil {
		return nil, page.ErrNotFound
	}
	return best, nil
}

type fakeEvents struct {
	payload *event.Payload
	calls   int
}

func (f *fakeEvents) Enrich(context.Context, string) *event.Payload {
	f.calls++
	return f.payload
}

func published(id, slug string, at time.Time) page.Record {
	return page.Record{ID: id, SiteID: "site-1", Name: slug, Slug: slug, Status: page.StatusPublished, PublishedAt: &at}
}

func verifiedDomain(host string) *domain.Record {
	return &domain.Record{ID: "d-" + host, SiteID: "site-1", Host: host, DNSStatus: domain.DNSVerified, SSLStatus: domain.SSLActive}
}

func TestScenarioAuthorizedViaWWW(t *testing.T) {
	domains := &fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}}
	pages := &fakePages{bySite: map[string][]page.Record{"site-1": {published("p-1", "home", time.Now())}}}
	c := NewChain(domains, pages, nil)

	res, err := c.Authorize(context.Background(), "www.example.live")
	require.NoError(t, err)
	assert.True(t, res.Authorized)
	require.NotNil(t, res.Page)
	assert.Equal(t, "home", res.Page.Slug)
	assert.Equal(t, "example.live", res.Domain)
	assert.Equal(t, []string{"example.live"}, domains.calls)
}

func TestScenarioUnregistered(t *testing.T) {
	c := NewChain(&fakeDomains{}, &fakePages{}, nil)
	res, err := c.Authorize(context.Background(), "unregistered.live")
	require.NoError(t, err)
	assert.False(t, res.Authorized)
	assert.Equal(t, "Domain not found or inactive", res.Reason)
	assert.Nil(t, res.Record())
}

func TestScenarioPendingDNS(t *testing.T) {
	rec := verifiedDomain("pending.live")
	rec.DNSStatus = domain.DNSPending
	pages := &fakePages{bySite: map[string][]page.Record{"site-1": {published("p-1", "home", time.Now())}}}
	c := NewChain(&fakeDomains{rows: map[string]*domain.Record{"pending.live": rec}}, pages, nil)

	res, err := c.Authorize(context.Background(), "pending.live")
	require.NoError(t, err)

	b, _ := json.Marshal(res)
	assert.JSONEq(t, `{"authorized":false,"domain":"pending.live","reason":"Domain DNS not verified","dnsStatus":"pending"}`, string(b))
}

func TestScenarioDraftOnly(t *testing.T) {
	draft := page.Record{ID: "p-1", SiteID: "site-1", Slug: "home", Status: page.StatusDraft}
	pages := &fakePages{bySite: map[string][]page.Record{"site-1": {draft}}}
	c := NewChain(&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}}, pages, nil)

	res, err := c.Authorize(context.Background(), "example.live")
	require.NoError(t, err)
	assert.False(t, res.Authorized)
	assert.Equal(t, "No published page found", res.Reason)
}

func TestUnverifiedDNSRejectedRegardlessOfPages(t *testing.T) {
	for _, st := range []domain.DNSStatus{domain.DNSPending, domain.DNSFailed} {
		rec := verifiedDomain("x.live")
		rec.DNSStatus = st
		pages := &fakePages{err: errors.New("must not be queried")}
		c := NewChain(&fakeDomains{rows: map[string]*domain.Record{"x.live": rec}}, pages, nil)

		res, err := c.Authorize(context.Background(), "x.live")
		require.NoError(t, err)
		assert.Equal(t, ReasonDNSNotVerified, res.Reason)
		assert.Equal(t, st, res.DNSStatus)
	}
}

func TestLatestPublishedPageWins(t *testing.T) {
	now := time.Now()
	pages := &fakePages{bySite: map[string][]page.Record{"site-1": {
		published("p-old", "old", now.Add(-time.Hour)),
		published("p-new", "new", now),
	}}}
	c := NewChain(&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}}, pages, nil)

	res, err := c.Authorize(context.Background(), "example.live")
	require.NoError(t, err)
	assert.Equal(t, "new", res.Page.Slug)
}

func TestUpstreamFailureIsError(t *testing.T) {
	c := NewChain(&fakeDomains{err: errors.New("connection refused")}, &fakePages{}, nil)
	_, err := c.Authorize(context.Background(), "example.live")
	require.Error(t, err)

	c = NewChain(&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}},
		&fakePages{err: errors.New("timeout")}, nil)
	_, err = c.Authorize(context.Background(), "example.live")
	require.Error(t, err)
}

func TestEmptyHostSkipsLookup(t *testing.T) {
	domains := &fakeDomains{}
	c := NewChain(domains, &fakePages{}, nil)
	res, err := c.Authorize(context.Background(), "www.")
	require.NoError(t, err)
	assert.Equal(t, ReasonDomainNotFound, res.Reason)
	assert.Empty(t, domains.calls)
}

func TestResolveEnrichesEventPages(t *testing.T) {
	eventID := "ev-1"
	pg := published("p-1", "home", time.Now())
	pg.EventID = &eventID
	pg.Tree = page.Tree(`{"type":"root"}`)

	events := &fakeEvents{payload: &event.Payload{ID: eventID, Name: "DevConf"}}
	c := NewChain(
		&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}},
		&fakePages{bySite: map[string][]page.Record{"site-1": {pg}}},
		events,
	)

	res, err := c.Resolve(context.Background(), "example.live")
	require.NoError(t, err)
	require.True(t, res.Authorized)
	assert.Equal(t, `{"type":"root"}`, string(res.Content.Tree))
	require.NotNil(t, res.Event)
	assert.Equal(t, "DevConf", res.Event.Name)
	assert.Equal(t, 1, events.calls)
}

func TestResolveDegradedEnrichmentStillAuthorized(t *testing.T) {
	eventID := "ev-1"
	pg := published("p-1", "home", time.Now())
	pg.EventID = &eventID
	events := &fakeEvents{payload: nil}
	c := NewChain(
		&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}},
		&fakePages{bySite: map[string][]page.Record{"site-1": {pg}}},
		events,
	)

	res, err := c.Resolve(context.Background(), "example.live")
	require.NoError(t, err)
	assert.True(t, res.Authorized)
	assert.Nil(t, res.Event)
}

func TestResolveSkipsEnrichmentWithoutEvent(t *testing.T) {
	events := &fakeEvents{}
	c := NewChain(
		&fakeDomains{rows: map[string]*domain.Record{"example.live": verifiedDomain("example.live")}},
		&fakePages{bySite: map[string][]page.Record{"site-1": {published("p-1", "home", time.Now())}}},
		events,
	)
	res, err := c.Resolve(context.Background(), "example.live")
	require.NoError(t, err)
	assert.True(t, res.Authorized)
	assert.Zero(t, events.calls)
}
