// internal/domain/model.go
//
// `domain` table row model.
//
// Context
// -------
// A Record is one custom hostname attached to a site, plus its DNS and SSL
// verification state.  Hosts are stored normalised (lowercase, no port, no
// leading `www.` label), so the registry lookup is a plain equality match.
//
// Schema reference: internal/database/migrations/000002_create_domain.up.sql
//
// Notes
// -----
//   - At most one domain per site has IsPrimary set; Store.Update enforces it
//     with a single conditional UPDATE inside a transaction.
//   - DNSStatus and SSLStatus change only through Service.Verify, the SSL
//     activation job, or an explicit operator override.
package domain

import "time"

// Type distinguishes customer-owned hosts from hosts under the platform zone.
type Type string

const (
	TypeCustom    Type = "custom"
	TypeSubdomain Type = "subdomain"
)

// DNSStatus tracks DNS verification.
type DNSStatus string

const (
	DNSPending  DNSStatus = "pending"
	DNSVerified DNSStatus = "verified"
	DNSFailed   DNSStatus = "failed"
)

// SSLStatus tracks certificate issuance.
type SSLStatus string

const (
	SSLPending      SSLStatus = "pending"
	SSLProvisioning SSLStatus = "provisioning"
	SSLActive       SSLStatus = "active"
)

// Record mirrors one row in the `domain` table.
type Record struct {
	ID         string     `db:"id"          json:"id"`
	SiteID     string     `db:"site_id"     json:"site_id"`
	Host       string     `db:"host"        json:"host"`
	Type       Type       `db:"type"        json:"type"`
	DNSStatus  DNSStatus  `db:"dns_status"  json:"dns_status"`
	SSLStatus  SSLStatus  `db:"ssl_status"  json:"ssl_status"`
	IsPrimary  bool       `db:"is_primary"  json:"is_primary"`
	VerifiedAt *time.Time `db:"verified_at" json:"verified_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

// Verified reports whether DNS verification succeeded.
func (r *Record) Verified() bool { return r.DNSStatus == DNSVerified }

// Patch carries the mutable fields of a Record.  Nil means unchanged.
type Patch struct {
	IsPrimary *bool
	Type      *Type
	DNSStatus *DNSStatus
	SSLStatus *SSLStatus
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.IsPrimary == nil && p.Type == nil && p.DNSStatus == nil && p.SSLStatus == nil
}
