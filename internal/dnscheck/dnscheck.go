// internal/dnscheck/dnscheck.go
//
// DNS verification for custom domains.
//
// Context
// -------
// A domain is verified when its public DNS points at the platform: either
// a CNAME to the configured target (preferred, required for subdomains) or
// an A/AAAA record matching one of the platform ingress IPs (apex hosts).
//
// The package splits I/O from policy.  Checkers gather records (public
// resolvers or the Route53 API) and hand them to Evaluate, which is pure
// and unit-tested without a network.
//
// Error policy
// ------------
// A resolver that answers NXDOMAIN, SERVFAIL, or times out yields an
// unverified Result, not an error: from the operator's point of view the
// records are simply not in place yet.  Only failures of our own
// infrastructure (e.g. the Route53 API rejecting credentials) are returned
// as errors.
package dnscheck

import (
	"context"
	"net"
	"strings"
	"time"
)

// Method names the record that satisfied verification.
type Method string

const (
	MethodCNAME Method = "CNAME"
	MethodA     Method = "A"
)

// Expectation is what a verified host must point at.
type Expectation struct {
	CNAME string
	IPs   []string
}

// Records are the DNS answers gathered for one host.
type Records struct {
	Host   string
	CNAMEs []string
	IPs    []net.IP
	// LookupError is set when no answer could be gathered at all.
	LookupError string
}

// Result is the outcome of one verification.
type Result struct {
	Verified  bool
	Method    Method
	Record    string // the matching (or best observed) record, "CNAME x -> y"
	Message   string
	CheckedAt time.Time
}

// Checker verifies one normalised host.
type Checker interface {
	Check(ctx context.Context, host string) (Result, error)
}

// Evaluate applies the verification policy to gathered records.  CNAME is
// checked first; A records are accepted only when no CNAME matched.
func Evaluate(rec Records, want Expectation, now time.Time) Result {
	res := Result{CheckedAt: now.UTC()}

	if rec.LookupError != "" {
		res.Message = "DNS lookup failed: " + rec.LookupError
		return res
	}

	target := canonical(want.CNAME)
	for _, c := range rec.CNAMEs {
		c = canonical(c)
		if c == "" || c == canonical(rec.Host) {
			continue
		}
		res.Record = "CNAME " + rec.Host + " -> " + c
		if target != "" && c == target {
			res.Verified = true
			res.Method = MethodCNAME
			res.Message = "CNAME points at " + target
			return res
		}
	}

	for _, ip := range rec.IPs {
		for _, expected := range want.IPs {
			if ip.Equal(net.ParseIP(expected)) {
				res.Verified = true
				res.Method = MethodA
				res.Record = "A " + rec.Host + " -> " + ip.String()
				res.Message = "A record points at " + ip.String()
				return res
			}
		}
	}

	if res.Record == "" && len(rec.IPs) > 0 {
		res.Record = "A " + rec.Host + " -> " + rec.IPs[0].String()
	}
	switch {
	case res.Record == "":
		res.Message = "no DNS records found for " + rec.Host
	case target != "":
		res.Message = "DNS records do not point at " + target
	default:
		res.Message = "DNS records do not point at the platform"
	}
	return res
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}
