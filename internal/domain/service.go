// internal/domain/service.go
//
// Domain mutation operations.
//
// Context
// -------
// Service is the operational side of the authorization chain: it attaches
// hosts to sites, verifies their DNS, toggles the primary flag, and drives
// SSL activation.  Read-only resolution lives in internal/authz.
//
// Workflow (Verify)
// -----------------
//  1. Concurrent calls for one domain id share a single DNS check
//     (singleflight), so a double-click costs one lookup and one write.
//  2. The checker's outcome is written with RecordVerification.
//  3. On success an `ssl_activate` job is upserted in the same
//     transaction.  The worker later probes TLS and calls ActivateSSL.
//
// Notes
// -----
//   - Business-rule rejections are *validate.Error (HTTP 400).
//   - Resolver misses are "not verified", not errors.  Only checker
//     infrastructure failures (Route53 API) bubble up.
package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/eventsite/internal/dnscheck"
	"github.com/yanizio/eventsite/internal/jobs"
	"github.com/yanizio/eventsite/internal/metrics"
	"github.com/yanizio/eventsite/internal/page"
	"github.com/yanizio/eventsite/internal/site"
	"github.com/yanizio/eventsite/internal/validate"
)

// Registry is the persistence surface Service needs; *Store satisfies it.
type Registry interface {
	ByID(ctx context.Context, id string) (*Record, error)
	ListBySite(ctx context.Context, siteID string) ([]Record, error)
	ListByDNSStatus(ctx context.Context, limit int, statuses ...DNSStatus) ([]Record, error)
	Create(ctx context.Context, siteID, host string, typ Type) (*Record, error)
	Update(ctx context.Context, id string, p Patch) (*Record, error)
	RecordVerification(ctx context.Context, id string, verified bool, at time.Time) error
	ActivateSSL(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
}

// SiteLookup resolves site ids.
type SiteLookup interface {
	ByID(ctx context.Context, id string) (*site.Record, error)
}

// PublishedPages resolves a site's live page.
type PublishedPages interface {
	PublishedBySite(ctx context.Context, siteID string) (*page.Record, error)
}

// JobQueue persists follow-up work.
type JobQueue interface {
	Enqueue(ctx context.Context, domainID string, kind jobs.Kind, delay time.Duration, maxAttempts int) error
}

// Prober confirms a host serves a valid certificate.
type Prober interface {
	Probe(ctx context.Context, host string) error
}

// TxRunner runs fn in one transaction carried by ctx.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps are Service collaborators.  Prober may be nil, in which case SSL
// activation trusts the configured delay.
type Deps struct {
	Domains Registry
	Sites   SiteLookup
	Pages   PublishedPages
	Checker dnscheck.Checker
	Jobs    JobQueue
	Prober  Prober
	Tx      TxRunner
}

// Options tune verification side effects.
type Options struct {
	Expect             dnscheck.Expectation
	SSLActivationDelay time.Duration
	SSLMaxAttempts     int
	// VerifyTimeout bounds one shared verification run; zero means 30s.
	VerifyTimeout time.Duration
}

const defaultVerifyTimeout = 30 * time.Second

// Service implements the domain mutation operations.
type Service struct {
	d     Deps
	opts  Options
	group singleflight.Group
}

// NewService wires a Service.
func NewService(d Deps, opts Options) *Service {
	return &Service{d: d, opts: opts}
}

// CreateInput is the body of POST /domains.
type CreateInput struct {
	SiteID string `json:"site_id" validate:"required,uuid"`
	Host   string `json:"host"    validate:"required,max=300"`
	Type   Type   `json:"type"    validate:"omitempty,oneof=custom subdomain"`
}

// UpdateInput is the body of PUT /domains/{id}.  Absent fields are left
// unchanged.
type UpdateInput struct {
	IsPrimary *bool      `json:"is_primary"`
	Type      *Type      `json:"type"       validate:"omitempty,oneof=custom subdomain"`
	DNSStatus *DNSStatus `json:"dns_status" validate:"omitempty,oneof=pending verified failed"`
	SSLStatus *SSLStatus `json:"ssl_status" validate:"omitempty,oneof=pending provisioning active"`
}

// Verification is the detail returned by Verify.
type Verification struct {
	DNSVerified bool      `json:"dnsVerified"`
	DNSRecord   string    `json:"dnsRecord"`
	Message     string    `json:"message"`
	CheckedAt   time.Time `json:"checkedAt"`
}

// VerifyResult pairs the updated record with the check detail.
type VerifyResult struct {
	Domain       *Record      `json:"domain"`
	Verification Verification `json:"verification"`
}

// Create attaches a host to a site.  The site must exist and already have
// a published page.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Record, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	host := Normalize(in.Host)
	if err := ValidateHost(host); err != nil {
		return nil, validate.Field("host", err.Error())
	}

	st, err := s.d.Sites.ByID(ctx, in.SiteID)
	if errors.Is(err, site.ErrNotFound) {
		return nil, validate.Field("site_id", "site does not exist")
	}
	if err != nil {
		return nil, err
	}
	if !st.Active() {
		return nil, validate.Field("site_id", "site is not active")
	}

	if _, err := s.d.Pages.PublishedBySite(ctx, st.ID); err != nil {
		if errors.Is(err, page.ErrNotFound) {
			return nil, validate.Field("site_id", "site has no published page")
		}
		return nil, err
	}

	typ := in.Type
	if typ == "" {
		typ = TypeCustom
	}

	rec, err := s.d.Domains.Create(ctx, st.ID, host, typ)
	if err != nil {
		return nil, err
	}
	zap.S().Infow("domain created", "domain_id", rec.ID, "host", rec.Host, "site_id", rec.SiteID,
		"primary", rec.IsPrimary)
	return rec, nil
}

// Get returns one domain.
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.d.Domains.ByID(ctx, id)
}

// Instructions returns the DNS records rec needs.
func (s *Service) Instructions(rec *Record) []Instruction {
	return GenerateInstructions(rec.Host, s.opts.Expect)
}

// ListBySite returns every domain attached to siteID.
func (s *Service) ListBySite(ctx context.Context, siteID string) ([]Record, error) {
	if _, err := s.d.Sites.ByID(ctx, siteID); err != nil {
		return nil, err
	}
	return s.d.Domains.ListBySite(ctx, siteID)
}

// Verify runs a DNS check for domain id and records the outcome.
// Concurrent calls for the same id share one run, which is detached from
// any single caller's cancellation.
func (s *Service) Verify(ctx context.Context, id string) (*VerifyResult, error) {
	timeout := s.opts.VerifyTimeout
	if timeout <= 0 {
		timeout = defaultVerifyTimeout
	}
	ch := s.group.DoChan(id, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return s.verify(fctx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*VerifyResult), nil
	}
}

func (s *Service) verify(ctx context.Context, id string) (*VerifyResult, error) {
	rec, err := s.d.Domains.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.d.Checker.Check(ctx, rec.Host)
	if err != nil {
		metrics.VerifyTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("dns check %s: %w", rec.Host, err)
	}

	err = s.d.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.d.Domains.RecordVerification(ctx, id, res.Verified, res.CheckedAt); err != nil {
			return err
		}
		if res.Verified && rec.SSLStatus != SSLActive {
			return s.d.Jobs.Enqueue(ctx, id, jobs.KindSSLActivate, s.opts.SSLActivationDelay, s.opts.SSLMaxAttempts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outcome := "failed"
	if res.Verified {
		outcome = "verified"
	}
	metrics.VerifyTotal.WithLabelValues(outcome).Inc()
	zap.S().Infow("domain verification", "domain_id", id, "host", rec.Host,
		"result", outcome, "record", res.Record, "message", res.Message)

	updated, err := s.d.Domains.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Domain: updated,
		Verification: Verification{
			DNSVerified: res.Verified,
			DNSRecord:   res.Record,
			Message:     res.Message,
			CheckedAt:   res.CheckedAt,
		},
	}, nil
}

// Update applies an admin or operator change.  Setting ssl_status to
// provisioning schedules activation just as a successful Verify does.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*Record, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	p := Patch{IsPrimary: in.IsPrimary, Type: in.Type, DNSStatus: in.DNSStatus, SSLStatus: in.SSLStatus}
	if p.Empty() {
		return nil, validate.Field("body", "no updatable fields given")
	}

	var rec *Record
	err := s.d.Tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if rec, err = s.d.Domains.Update(ctx, id, p); err != nil {
			return err
		}
		if p.SSLStatus != nil && *p.SSLStatus == SSLProvisioning {
			return s.d.Jobs.Enqueue(ctx, id, jobs.KindSSLActivate, s.opts.SSLActivationDelay, s.opts.SSLMaxAttempts)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("domain updated", "domain_id", id, "primary", rec.IsPrimary,
		"dns_status", rec.DNSStatus, "ssl_status", rec.SSLStatus)
	return rec, nil
}

// Delete removes a domain.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.d.Domains.Delete(ctx, id); err != nil {
		return err
	}
	zap.S().Infow("domain deleted", "domain_id", id)
	return nil
}

// ActivateSSL is the `ssl_activate` job body.  A domain that was deleted
// or is no longer verified/provisioning is a no-op success.
func (s *Service) ActivateSSL(ctx context.Context, id string) error {
	rec, err := s.d.Domains.ByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !rec.Verified() || rec.SSLStatus != SSLProvisioning {
		return nil
	}

	if s.d.Prober != nil {
		if err := s.d.Prober.Probe(ctx, rec.Host); err != nil {
			return fmt.Errorf("certificate not ready for %s: %w", rec.Host, err)
		}
	}

	ok, err := s.d.Domains.ActivateSSL(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		zap.S().Infow("ssl active", "domain_id", id, "host", rec.Host)
	}
	return nil
}

// ReverifyPending re-runs Verify for up to limit pending or failed
// domains.  It returns how many became verified.
func (s *Service) ReverifyPending(ctx context.Context, limit int) (int, error) {
	recs, err := s.d.Domains.ListByDNSStatus(ctx, limit, DNSPending, DNSFailed)
	if err != nil {
		return 0, err
	}
	verified := 0
	for _, r := range recs {
		if ctx.Err() != nil {
			return verified, ctx.Err()
		}
		res, err := s.Verify(ctx, r.ID)
		if err != nil {
			zap.S().Warnw("re-verification failed", "domain_id", r.ID, "host", r.Host, "err", err)
			continue
		}
		if res.Verification.DNSVerified {
			verified++
		}
	}
	return verified, nil
}
