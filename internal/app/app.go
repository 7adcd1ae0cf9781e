// internal/app/app.go
//
// Process wiring shared by cmd/web and cmd/domainctl.
//
// Boot sequence
// -------------
//
//  1. LoadConfig     – koanf layers, then `vault:` references when present.
//  2. New            – DB pool (+ migrations), default site, Redis cache,
//     GeoLite2, DNS checkers, stores, services, jobs.
//  3. Handler        – platform and public chi routers, middleware stack,
//     registered components, dispatch by Host.
//  4. Run            – HTTP server, job worker, and cron scheduler in one
//     errgroup; the first failure stops the rest.
//
// Optional collaborators (Redis, GeoIP, Route53) degrade with a warning
// instead of aborting boot, except Route53 which is explicitly enabled.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/eventsite/internal/auth"
	"github.com/yanizio/eventsite/internal/authz"
	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/config"
	"github.com/yanizio/eventsite/internal/database"
	"github.com/yanizio/eventsite/internal/dnscheck"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/event"
	"github.com/yanizio/eventsite/internal/jobs"
	"github.com/yanizio/eventsite/internal/middleware"
	"github.com/yanizio/eventsite/internal/page"
	"github.com/yanizio/eventsite/internal/requestinfo"
	"github.com/yanizio/eventsite/internal/server"
	"github.com/yanizio/eventsite/internal/site"
	"github.com/yanizio/eventsite/internal/tlsprobe"
	"github.com/yanizio/eventsite/internal/vault"
)

// reverifyBatch bounds one scheduled re-verification pass.
const reverifyBatch = 100

// App holds every long-lived collaborator.
type App struct {
	Config  *config.Config
	DB      *sqlx.DB
	Redis   *redis.Client
	Sites   *site.Store
	Pages   *page.Store
	Chain   *authz.Chain
	Domains *domain.Service
	Queue   *jobs.Queue
	Worker  *jobs.Worker
	Cron    *jobs.Scheduler
	Limiter *middleware.RateLimiter
}

// LoadConfig reads the layered config and resolves Vault references.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if !cfg.HasSecretRefs() {
		return cfg, nil
	}
	vc, err := vault.New(ctx)
	if err != nil {
		return nil, err
	}
	return config.ResolveSecrets(ctx, cfg, vc)
}

// New opens infrastructure and wires the services.  Call Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	opts := database.DefaultOptions()
	opts.MaxOpenConns = cfg.Database.MaxOpen
	opts.MaxIdleConns = cfg.Database.MaxIdle
	db, err := database.OpenWithOptions(ctx, cfg.Database.DSN, cfg.Database.Password, opts)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &App{Config: cfg, DB: db}

	if cfg.Database.Migrate {
		if err := database.Migrate(db); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Sites = site.NewStore(db)
	if _, err := a.Sites.EnsureDefault(ctx, cfg.Tenant.DefaultSiteID); err != nil {
		a.Close()
		return nil, fmt.Errorf("default site: %w", err)
	}
	if n, err := a.Sites.CountActive(ctx); err == nil {
		zap.S().Infow("active sites", "count", n)
	}

	if err := requestinfo.InitGeo(cfg.GeoIP.DBPath); err != nil {
		zap.S().Warnw("geoip disabled", "err", err)
	}

	var eventCache event.Cache
	if cfg.Redis.URL != "" {
		rdb, err := event.DialRedis(ctx, cfg.Redis.URL)
		if err != nil {
			zap.S().Warnw("redis unavailable, event cache disabled", "err", err)
		} else {
			a.Redis = rdb
			eventCache = event.NewRedisCache(rdb, cfg.Redis.EventTTL)
		}
	}

	checker, err := NewChecker(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	domains := domain.NewStore(db)
	a.Pages = page.NewStore(db, a.Sites, cfg.Tenant.DefaultSiteID)
	a.Chain = authz.NewChain(domains, a.Pages, event.NewEnricher(db, eventCache))
	a.Queue = jobs.NewQueue(db)
	a.Domains = domain.NewService(domain.Deps{
		Domains: domains,
		Sites:   a.Sites,
		Pages:   a.Pages,
		Checker: checker,
		Jobs:    a.Queue,
		Prober:  &tlsprobe.Prober{Timeout: cfg.SSL.ProbeTimeout},
		Tx:      database.NewTxRunner(db),
	}, ServiceOptions(cfg))

	a.Worker = jobs.NewWorker(a.Queue, cfg.Jobs.PollInterval, cfg.Jobs.BatchSize)
	a.Worker.Handle(jobs.KindSSLActivate, func(ctx context.Context, j jobs.Job) error {
		return a.Domains.ActivateSSL(ctx, j.DomainID)
	})

	a.Cron = jobs.NewScheduler()
	if err := a.Cron.Add("reverify", cfg.Jobs.ReverifySchedule, func(ctx context.Context) error {
		n, err := a.Domains.ReverifyPending(ctx, reverifyBatch)
		if n > 0 {
			zap.S().Infow("scheduled re-verification", "verified", n)
		}
		return err
	}); err != nil {
		a.Close()
		return nil, err
	}

	a.Limiter = middleware.NewRateLimiter(cfg.RateLimit.VerifyRPS, cfg.RateLimit.VerifyBurst)
	return a, nil
}

// ServiceOptions maps config onto domain.Options.
func ServiceOptions(cfg *config.Config) domain.Options {
	return domain.Options{
		Expect:             Expectation(cfg),
		SSLActivationDelay: cfg.SSL.ActivationDelay,
		SSLMaxAttempts:     cfg.SSL.MaxAttempts,
	}
}

// Expectation is the DNS target every custom host must point at.
func Expectation(cfg *config.Config) dnscheck.Expectation {
	return dnscheck.Expectation{CNAME: cfg.DNS.ExpectedCNAME, IPs: cfg.DNS.ExpectedIPs}
}

// NewChecker builds the public resolver checker, fronted by a Route53
// checker for the platform zone when enabled.
func NewChecker(ctx context.Context, cfg *config.Config) (dnscheck.Checker, error) {
	want := Expectation(cfg)
	public := dnscheck.NewResolverChecker(want, cfg.DNS.Nameserver, cfg.DNS.Timeout)
	if !cfg.Route53.Enabled {
		return public, nil
	}
	zone, err := dnscheck.NewRoute53Checker(ctx, dnscheck.Route53Options{
		Region:          cfg.Route53.Region,
		HostedZoneID:    cfg.Route53.HostedZoneID,
		ZoneName:        cfg.Route53.ZoneName,
		AccessKeyID:     cfg.Route53.AccessKeyID,
		SecretAccessKey: cfg.Route53.SecretAccessKey,
	}, want)
	if err != nil {
		return nil, err
	}
	return &dnscheck.Router{Public: public, Zone: zone, ZoneName: cfg.Route53.ZoneName}, nil
}

// Handler builds two routers with the same middleware stack (chi basics,
// visitor info, access log, security headers, acting user) and picks one
// per request by Host: the platform host gets every component, any other
// host gets only the public routes.
func (a *App) Handler() (http.Handler, error) {
	platform, public := a.router(), a.router()

	env := &component.Env{
		Config:        a.Config,
		DB:            a.DB,
		Chain:         a.Chain,
		Domains:       a.Domains,
		Pages:         a.Pages,
		VerifyLimiter: a.Limiter,
	}
	if err := component.Mount(platform, public, env); err != nil {
		return nil, err
	}

	h := byHost(PlatformHost(a.Config), platform, public)
	if a.Config.HTTP.ForceHTTPS {
		return middleware.ForceHTTPS(a.Chain, h), nil
	}
	return h, nil
}

func (a *App) router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestinfo.Enrich)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Security)
	r.Use(auth.Identify(a.Config.Tenant.DefaultUserID))
	return r
}

// PlatformHost is the host of http.public_base_url, lower-cased and
// without port.  It falls back to "localhost" when the URL is unset.
func PlatformHost(cfg *config.Config) string {
	if cfg.HTTP.PublicBaseURL != "" {
		if u, err := url.Parse(cfg.HTTP.PublicBaseURL); err == nil && u.Hostname() != "" {
			return canonicalHost(u.Hostname())
		}
	}
	return "localhost"
}

func byHost(platformHost string, platform, public http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if canonicalHost(r.Host) == platformHost {
			platform.ServeHTTP(w, r)
			return
		}
		public.ServeHTTP(w, r)
	})
}

func canonicalHost(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(h)), ".")
}

// Run serves HTTP and runs background work until ctx is cancelled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	h, err := a.Handler()
	if err != nil {
		return err
	}
	srv := server.New(a.Config.HTTP.ListenAddr, h)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx, srv) })
	g.Go(func() error { return a.Worker.Run(ctx) })
	g.Go(func() error { return a.Cron.Run(ctx) })
	return g.Wait()
}

// Close releases pools and handles.  Safe on a partially built App.
func (a *App) Close() {
	requestinfo.CloseGeo()
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}
