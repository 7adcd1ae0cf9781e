// components/health/health.go
//
// Operational endpoints.
//
//	GET /healthz         database ping, 200 "ok" or 503
//	GET /metrics         Prometheus exposition
//	GET /debug/request   what the service sees for this request
//
// Only /healthz is reachable on customer hosts, so load-balancer probes
// that send an arbitrary Host still work.
//
// /debug/request echoes the raw and normalised host, client IP, parsed
// user agent, and geo hints, which is usually enough to tell a proxy
// misconfiguration from a DNS problem.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/httpx"
	"github.com/yanizio/eventsite/internal/requestinfo"
)

// compile-time assertions
var (
	_ component.Component    = (*Comp)(nil)
	_ component.Initializer  = (*Comp)(nil)
	_ component.PublicRouter = (*Comp)(nil)
)

func init() { component.Register(&Comp{}) }

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Comp implements component.Component.
type Comp struct {
	db Pinger
}

// New returns a Comp bound to db.
func New(db Pinger) *Comp { return &Comp{db: db} }

func (c *Comp) Name() string { return "health" }

func (c *Comp) Init(env *component.Env) error {
	if env.DB != nil {
		c.db = env.DB
	}
	return nil
}

func (c *Comp) Routes(r chi.Router) {
	r.Get("/healthz", c.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/debug/request", c.debugRequest)
}

func (c *Comp) PublicRoutes(r chi.Router) {
	r.Get("/healthz", c.healthz)
}

func (c *Comp) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	if c.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := c.db.PingContext(ctx); err != nil {
			httpx.LogUpstream(r, err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	_, _ = w.Write([]byte("ok\n"))
}

// requestView is the /debug/request body.
type requestView struct {
	Host       string `json:"host"`
	Normalized string `json:"normalized_host"`
	IP         string `json:"ip"`
	UserAgent  string `json:"user_agent"`
	Browser    string `json:"browser"`
	OS         string `json:"os"`
	Device     string `json:"device"`
	IsBot      bool   `json:"is_bot"`
	Country    string `json:"country,omitempty"`
	City       string `json:"city,omitempty"`
	Lang       string `json:"lang,omitempty"`
}

func (c *Comp) debugRequest(w http.ResponseWriter, r *http.Request) {
	out := requestView{
		Host:       r.Host,
		Normalized: domain.Normalize(r.Host),
		UserAgent:  r.UserAgent(),
	}
	if ri := requestinfo.FromContext(r.Context()); ri != nil {
		out.IP = ri.Geo.IP.String()
		out.Browser = ri.UA.Browser
		out.OS = ri.UA.OS
		out.Device = ri.UA.Device
		out.IsBot = ri.UA.IsBot
		out.Country = ri.Geo.CountryISO
		out.City = ri.Geo.City
		out.Lang = ri.PrimaryLang
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
