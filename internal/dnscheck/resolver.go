package dnscheck

import (
	"context"
	"net"
	"time"
)

// Resolver is the subset of *net.Resolver the checker needs.
type Resolver interface {
	LookupCNAME(ctx context.Context, host string) (string, error)
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ResolverChecker verifies hosts through DNS resolvers.
type ResolverChecker struct {
	resolver Resolver
	want     Expectation
	timeout  time.Duration
	now      func() time.Time
}

// NewResolverChecker builds a checker.  An empty nameserver uses the
// system resolver; otherwise every query goes to nameserver ("ip:port"),
// which lets operators point verification at an authoritative server.
func NewResolverChecker(want Expectation, nameserver string, timeout time.Duration) *ResolverChecker {
	return &ResolverChecker{
		resolver: newNetResolver(nameserver, timeout),
		want:     want,
		timeout:  timeout,
		now:      time.Now,
	}
}

func newNetResolver(nameserver string, timeout time.Duration) *net.Resolver {
	if nameserver == "" {
		return net.DefaultResolver
	}
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			return d.DialContext(ctx, network, nameserver)
		},
	}
}

// Check gathers CNAME and address records for host and evaluates them.
func (c *ResolverChecker) Check(ctx context.Context, host string) (Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rec := Records{Host: host}
	if cname, err := c.resolver.LookupCNAME(ctx, host); err == nil && cname != "" {
		rec.CNAMEs = []string{c.viaTarget(ctx, cname)}
	}
	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err == nil {
		for _, a := range addrs {
			rec.IPs = append(rec.IPs, a.IP)
		}
	}
	if len(rec.CNAMEs) == 0 && len(rec.IPs) == 0 {
		rec.LookupError = "no answer for " + host
		if err != nil {
			rec.LookupError = err.Error()
		}
	}
	return Evaluate(rec, c.want, c.now()), nil
}

// viaTarget maps cname back to the expected target when the target is
// itself an alias and both chains end at the same canonical name.
// LookupCNAME follows the whole chain, so a host pointed at the target
// reports the target's final name rather than the target.
func (c *ResolverChecker) viaTarget(ctx context.Context, cname string) string {
	target := canonical(c.want.CNAME)
	if target == "" || canonical(cname) == target {
		return cname
	}
	end, err := c.resolver.LookupCNAME(ctx, target)
	if err != nil || canonical(end) == "" || canonical(end) == target {
		return cname
	}
	if canonical(end) == canonical(cname) {
		return c.want.CNAME
	}
	return cname
}
