// components/domains/domains.go
//
// Admin API for custom domains.
//
// Routes
// ------
//
//	POST   /domains               create (201)
//	GET    /domains/{id}          record + DNS instructions
//	POST   /domains/{id}/verify   live DNS check, rate limited
//	PUT    /domains/{id}          primary toggle and operator overrides
//	DELETE /domains/{id}          remove (204)
//	GET    /sites/{id}/domains    list, primary first
//
// Notes
// -----
//   - Callers are authenticated upstream; the acting user comes from
//     auth.Identify and is only logged here.
//   - Error mapping lives in httpx.WriteError.
package domains

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/auth"
	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/httpx"
)

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
	_ Service               = (*domain.Service)(nil)
)

func init() { component.Register(&Comp{}) }

// Service is the slice of *domain.Service the handlers call.
type Service interface {
	Create(ctx context.Context, in domain.CreateInput) (*domain.Record, error)
	Get(ctx context.Context, id string) (*domain.Record, error)
	Instructions(rec *domain.Record) []domain.Instruction
	ListBySite(ctx context.Context, siteID string) ([]domain.Record, error)
	Verify(ctx context.Context, id string) (*domain.VerifyResult, error)
	Update(ctx context.Context, id string, in domain.UpdateInput) (*domain.Record, error)
	Delete(ctx context.Context, id string) error
}

// Comp implements component.Component.
type Comp struct {
	svc     Service
	limiter func(http.Handler) http.Handler
}

// New returns a Comp.  limiter wraps the verify route and may be nil.
func New(svc Service, limiter func(http.Handler) http.Handler) *Comp {
	return &Comp{svc: svc, limiter: limiter}
}

func (c *Comp) Name() string { return "domains" }

func (c *Comp) Init(env *component.Env) error {
	c.svc = env.Domains
	if env.VerifyLimiter != nil {
		c.limiter = env.VerifyLimiter.Handler
	}
	return nil
}

func (c *Comp) Routes(r chi.Router) {
	r.Route("/domains", func(r chi.Router) {
		r.Post("/", c.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", c.get)
			r.Put("/", c.update)
			r.Delete("/", c.delete)
			if c.limiter != nil {
				r.With(c.limiter).Post("/verify", c.verify)
			} else {
				r.Post("/verify", c.verify)
			}
		})
	})
	r.Get("/sites/{id}/domains", c.listBySite)
}

// view is the GET /domains/{id} body.
type view struct {
	Domain       *domain.Record       `json:"domain"`
	Instructions []domain.Instruction `json:"instructions"`
}

func (c *Comp) create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rec, err := c.svc.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logMutation(r, "create", rec.ID)
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (c *Comp) get(w http.ResponseWriter, r *http.Request) {
	rec, err := c.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view{Domain: rec, Instructions: c.svc.Instructions(rec)})
}

func (c *Comp) verify(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := c.svc.Verify(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logMutation(r, "verify", id)
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (c *Comp) update(w http.ResponseWriter, r *http.Request) {
	var in domain.UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	rec, err := c.svc.Update(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logMutation(r, "update", id)
	httpx.WriteJSON(w, http.StatusOK, rec)
}

func (c *Comp) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.svc.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logMutation(r, "delete", id)
	w.WriteHeader(http.StatusNoContent)
}

func (c *Comp) listBySite(w http.ResponseWriter, r *http.Request) {
	recs, err := c.svc.ListBySite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, recs)
}

func logMutation(r *http.Request, op, id string) {
	actor, _ := auth.UserID(r.Context())
	zap.S().Infow("domain api", "op", op, "domain_id", id, "actor", actor)
}
