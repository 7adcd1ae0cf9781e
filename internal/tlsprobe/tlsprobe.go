// Package tlsprobe checks that a host serves a valid certificate for its
// own name.  The SSL activation job uses it to decide when a freshly
// verified domain can be flipped from `provisioning` to `active`.
package tlsprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrNotCovered is returned when the served leaf does not cover the host.
var ErrNotCovered = errors.New("certificate does not cover host")

// Prober dials host:443 and validates the presented chain.
type Prober struct {
	Timeout time.Duration
	// Port defaults to "443".
	Port string
	// RootCAs overrides the system pool (tests).
	RootCAs *x509.CertPool
	// Addr overrides the dial target, keeping host for SNI (tests).
	Addr string
}

// Probe returns nil when a handshake with SNI=host succeeds and the leaf
// certificate is valid for host now.
func (p *Prober) Probe(ctx context.Context, host string) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	addr := p.Addr
	if addr == "" {
		port := p.Port
		if port == "" {
			port = "443"
		}
		addr = net.JoinHostPort(host, port)
	}

	d := tls.Dialer{Config: &tls.Config{
		ServerName: host,
		RootCAs:    p.RootCAs,
		MinVersion: tls.VersionTLS12,
	}}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		var herr x509.HostnameError
		if errors.As(err, &herr) {
			return fmt.Errorf("%w: %s", ErrNotCovered, host)
		}
		return fmt.Errorf("tls dial %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return fmt.Errorf("%w: %s (no peer certificate)", ErrNotCovered, host)
	}
	return state.PeerCertificates[0].VerifyHostname(host)
}
