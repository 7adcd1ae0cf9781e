package dnscheck

import (
	"context"
	"strings"
)

// Router sends hosts inside the managed zone to Zone and everything else
// to Public.  A nil Zone routes every host to Public.
type Router struct {
	Public   Checker
	Zone     Checker
	ZoneName string
}

// Check implements Checker.
func (r *Router) Check(ctx context.Context, host string) (Result, error) {
	if r.Zone != nil && r.inZone(host) {
		return r.Zone.Check(ctx, host)
	}
	return r.Public.Check(ctx, host)
}

func (r *Router) inZone(host string) bool {
	zone := canonical(r.ZoneName)
	if zone == "" {
		return false
	}
	return host == zone || strings.HasSuffix(host, "."+zone)
}
