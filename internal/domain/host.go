// internal/domain/host.go
//
// Hostname normalisation and validation.
//
// Context
// -------
// Every entry point (Host header, admin API, CLI) runs hosts through
// Normalize before touching the registry:
//
//   1. lower-case and trim whitespace,
//   2. drop a scheme and path if a URL was pasted,
//   3. drop a `:port` suffix,
//   4. strip every leading `www.` label, then any trailing root dots.
//
// Step 4 strips repeatedly so Normalize(h) == Normalize("www."+h) for any h.
//
// ValidateHost rejects malformed names and bare public suffixes ("co.uk")
// using the public suffix list from golang.org/x/net/publicsuffix.

package domain

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

const wwwLabel = "www."

var (
	ErrHostEmpty     = errors.New("host is empty")
	ErrHostTooLong   = errors.New("host must be at most 253 characters")
	ErrHostMalformed = errors.New("host is not a valid DNS name")
	ErrHostIsSuffix  = errors.New("host is a public suffix")
)

var hostnameRe = regexp.MustCompile(`^([a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// Normalize returns the canonical registry key for raw.  Stripping one
// layer can expose another (" x" behind "www."), so passes repeat until
// the host stops changing.
func Normalize(raw string) string {
	h := raw
	for {
		next := normalizeOnce(h)
		if next == h {
			return h
		}
		h = next
	}
}

func normalizeOnce(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))

	if i := strings.Index(h, "://"); i != -1 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i != -1 {
		h = h[:i]
	}
	if i := strings.IndexByte(h, ':'); i != -1 {
		h = h[:i]
	}
	for strings.HasPrefix(h, wwwLabel) {
		h = strings.TrimSpace(h[len(wwwLabel):])
	}
	return strings.TrimRight(h, ".")
}

// ValidateHost checks a normalised host.
func ValidateHost(h string) error {
	switch {
	case h == "":
		return ErrHostEmpty
	case len(h) > 253:
		return ErrHostTooLong
	case !hostnameRe.MatchString(h):
		return ErrHostMalformed
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(h); err != nil {
		return ErrHostIsSuffix
	}
	return nil
}

// Apex returns the registrable domain (eTLD+1) for h, or h itself when it
// cannot be derived.
func Apex(h string) string {
	apex, err := publicsuffix.EffectiveTLDPlusOne(h)
	if err != nil {
		return h
	}
	return apex
}

// IsApex reports whether h is a registrable domain with no subdomain
// labels.  Apex hosts cannot carry a CNAME and must use A records.
func IsApex(h string) bool { return Apex(h) == h }
