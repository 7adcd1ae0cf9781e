// internal/config/model.go
//
// Typed configuration model for eventsite.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                             – dotenv values,
//   • `conf/global.yaml`                          – primary static file,
//   • `EVENTSITE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling (see secrets.go), so code
// that reads Config sees only plain strings.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Durations are written as Go duration strings ("30s", "5m").

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  PublicBaseURL is used to build absolute
// links in API responses (e.g. the DNS instructions page).
type HTTP struct {
	ListenAddr    string `koanf:"listen_addr"     validate:"required,hostname_port"`
	ForceHTTPS    bool   `koanf:"force_https"`
	PublicBaseURL string `koanf:"public_base_url" validate:"omitempty,url"`
}

//
// Database section
//

// Database holds the control-plane DSN and its secret.
//
// The DSN is kept in YAML so operators can tweak host, port, or flags
// without touching Vault.  The password is usually a `vault:` reference and
// is injected into the parsed DSN at open time.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
	Migrate  bool   `koanf:"migrate"`
}

//
// Redis section
//

// Redis is optional.  An empty URL disables the event payload cache.
type Redis struct {
	URL      string        `koanf:"url"`
	EventTTL time.Duration `koanf:"event_ttl"`
}

//
// DNS verification section
//

// DNS describes what a verified custom domain must point at.  Subdomain
// hosts are expected to CNAME to ExpectedCNAME; apex hosts (which cannot
// carry a CNAME) must have an A record in ExpectedIPs.
type DNS struct {
	ExpectedCNAME string        `koanf:"expected_cname" validate:"required,fqdn"`
	ExpectedIPs   []string      `koanf:"expected_ips"   validate:"dive,ip"`
	Nameserver    string        `koanf:"nameserver"     validate:"omitempty,hostname_port"`
	Timeout       time.Duration `koanf:"timeout"`
}

// Route53 enables checking `subdomain` hosts against the platform's own
// hosted zone instead of public resolvers.
type Route53 struct {
	Enabled         bool   `koanf:"enabled"`
	Region          string `koanf:"region"            validate:"required_if=Enabled true"`
	HostedZoneID    string `koanf:"hosted_zone_id"    validate:"required_if=Enabled true"`
	ZoneName        string `koanf:"zone_name"         validate:"required_if=Enabled true"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

//
// SSL activation and background jobs
//

// SSL tunes the certificate activation job scheduled after a successful
// DNS verification.
type SSL struct {
	ActivationDelay time.Duration `koanf:"activation_delay"`
	ProbeTimeout    time.Duration `koanf:"probe_timeout"`
	MaxAttempts     int           `koanf:"max_attempts" validate:"gte=0"`
}

// Jobs tunes the persisted job worker and the re-verification schedule.
type Jobs struct {
	PollInterval     time.Duration `koanf:"poll_interval"`
	BatchSize        int           `koanf:"batch_size"        validate:"gte=0"`
	ReverifySchedule string        `koanf:"reverify_schedule"`
}

//
// Tenant defaults
//

// Tenant replaces the hardcoded placeholder ids with values injected once
// at startup.  DefaultSiteID is used when a page is created without an
// explicit site; DefaultUserID is the actor recorded when the upstream
// auth proxy sends no identity.
type Tenant struct {
	DefaultSiteID string `koanf:"default_site_id" validate:"required,uuid"`
	DefaultUserID string `koanf:"default_user_id" validate:"required"`
}

//
// Misc
//

// GeoIP points at an optional GeoLite2-City database.
type GeoIP struct {
	DBPath string `koanf:"db_path"`
}

// RateLimit bounds how often DNS verification may be triggered.
type RateLimit struct {
	VerifyRPS   float64 `koanf:"verify_rps"   validate:"gte=0"`
	VerifyBurst int     `koanf:"verify_burst" validate:"gte=0"`
}

// Log controls the zap level ("debug", "info", "warn", "error").
type Log struct {
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime.  The loader discovers Root (repo root or
// EVENTSITE_ROOT override) so later code can build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	Database  Database  `koanf:"database"`
	Redis     Redis     `koanf:"redis"`
	DNS       DNS       `koanf:"dns"`
	Route53   Route53   `koanf:"route53"`
	SSL       SSL       `koanf:"ssl"`
	Jobs      Jobs      `koanf:"jobs"`
	Tenant    Tenant    `koanf:"tenant"`
	GeoIP     GeoIP     `koanf:"geoip"`
	RateLimit RateLimit `koanf:"ratelimit"`
	Log       Log       `koanf:"log"`
	Paths     Paths     `koanf:"-"`
}

// applyDefaults fills zero values that have a sensible default.  It runs
// before validation so required-with-default fields pass.
func (c *Config) applyDefaults() {
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8080"
	}
	if c.Database.MaxOpen == 0 {
		c.Database.MaxOpen = 15
	}
	if c.Database.MaxIdle == 0 {
		c.Database.MaxIdle = 5
	}
	if c.Redis.EventTTL == 0 {
		c.Redis.EventTTL = time.Minute
	}
	if c.DNS.Timeout == 0 {
		c.DNS.Timeout = 5 * time.Second
	}
	if c.SSL.ActivationDelay == 0 {
		c.SSL.ActivationDelay = 30 * time.Second
	}
	if c.SSL.ProbeTimeout == 0 {
		c.SSL.ProbeTimeout = 10 * time.Second
	}
	if c.SSL.MaxAttempts == 0 {
		c.SSL.MaxAttempts = 8
	}
	if c.Jobs.PollInterval == 0 {
		c.Jobs.PollInterval = 5 * time.Second
	}
	if c.Jobs.BatchSize == 0 {
		c.Jobs.BatchSize = 10
	}
	if c.Jobs.ReverifySchedule == "" {
		c.Jobs.ReverifySchedule = "@every 15m"
	}
	if c.RateLimit.VerifyRPS == 0 {
		c.RateLimit.VerifyRPS = 1
	}
	if c.RateLimit.VerifyBurst == 0 {
		c.RateLimit.VerifyBurst = 5
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
