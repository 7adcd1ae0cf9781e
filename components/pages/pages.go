// components/pages/pages.go
//
// Minimal page lifecycle API so a site can get a live page without the
// visual builder:
//
//	POST /pages                  create a draft (default site when site_id is empty)
//	POST /pages/{id}/publish     make it live (re-publish bumps version)
//	POST /pages/{id}/unpublish   back to draft
package pages

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/auth"
	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/httpx"
	"github.com/yanizio/eventsite/internal/page"
)

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
	_ Store                 = (*page.Store)(nil)
)

func init() { component.Register(&Comp{}) }

// Store is the slice of *page.Store the handlers call.
type Store interface {
	Create(ctx context.Context, in page.NewPage) (*page.Record, error)
	Publish(ctx context.Context, id string) (*page.Record, error)
	Unpublish(ctx context.Context, id string) (*page.Record, error)
}

// Comp implements component.Component.
type Comp struct {
	store Store
}

// New returns a Comp bound to store.
func New(store Store) *Comp { return &Comp{store: store} }

func (c *Comp) Name() string { return "pages" }

func (c *Comp) Init(env *component.Env) error {
	c.store = env.Pages
	return nil
}

func (c *Comp) Routes(r chi.Router) {
	r.Route("/pages", func(r chi.Router) {
		r.Post("/", c.create)
		r.Post("/{id}/publish", c.transition(Store.Publish, "publish"))
		r.Post("/{id}/unpublish", c.transition(Store.Unpublish, "unpublish"))
	})
}

func (c *Comp) create(w http.ResponseWriter, r *http.Request) {
	var in page.NewPage
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	rec, err := c.store.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	logMutation(r, "create", rec.ID)
	httpx.WriteJSON(w, http.StatusCreated, rec)
}

func (c *Comp) transition(fn func(Store, context.Context, string) (*page.Record, error), op string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := fn(c.store, r.Context(), id)
		if err != nil {
			httpx.WriteError(w, r, err)
			return
		}
		logMutation(r, op, id)
		httpx.WriteJSON(w, http.StatusOK, rec)
	}
}

func logMutation(r *http.Request, op, id string) {
	actor, _ := auth.UserID(r.Context())
	zap.S().Infow("page api", "op", op, "page_id", id, "actor", actor)
}
