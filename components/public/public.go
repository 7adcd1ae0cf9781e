// components/public/public.go
//
// Public page serving for custom hosts.
//
// Context
// -------
// Any GET the admin API does not match lands here.  The request Host runs
// through authz.Chain.Resolve:
//
//   - authorized      -> 200 {page:{id, slug, name, version, tree}, event}
//   - unauthorized    -> generic 404 page (no reason, no host echo)
//   - upstream error  -> generic 500 page, full error logged
//
// event is null when the page is not bound to an event or enrichment
// degraded.
package public

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/eventsite/internal/authz"
	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/event"
	"github.com/yanizio/eventsite/internal/httpx"
	"github.com/yanizio/eventsite/internal/page"
)

// compile-time assertions
var (
	_ component.Component    = (*Comp)(nil)
	_ component.Initializer  = (*Comp)(nil)
	_ component.PublicRouter = (*Comp)(nil)
)

func init() { component.Register(&Comp{}) }

// Resolver is satisfied by *authz.Chain.
type Resolver interface {
	Resolve(ctx context.Context, host string) (authz.Resolution, error)
}

// Comp implements component.Component.
type Comp struct {
	chain Resolver
}

// New returns a Comp bound to chain.
func New(chain Resolver) *Comp { return &Comp{chain: chain} }

func (c *Comp) Name() string { return "public" }

func (c *Comp) Init(env *component.Env) error {
	c.chain = env.Chain
	return nil
}

// Routes covers the platform host too, where every path resolves to the
// generic 404 unless the platform host is itself a registered domain.
func (c *Comp) Routes(r chi.Router) {
	r.Get("/*", c.serve)
}

func (c *Comp) PublicRoutes(r chi.Router) { c.Routes(r) }

// Body is the rendered payload.
type Body struct {
	Page  PageBody       `json:"page"`
	Event *event.Payload `json:"event"`
}

// PageBody is the page subset the renderer needs.
type PageBody struct {
	ID      string          `json:"id"`
	Slug    string          `json:"slug"`
	Name    string          `json:"name"`
	Version int             `json:"version"`
	Tree    json.RawMessage `json:"tree"`
}

func (c *Comp) serve(w http.ResponseWriter, r *http.Request) {
	res, err := c.chain.Resolve(r.Context(), r.Host)
	if err != nil {
		httpx.LogUpstream(r, err)
		httpx.ServerErrorPage(w)
		return
	}
	if !res.Authorized || res.Content == nil {
		httpx.NotFoundPage(w)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, render(res.Content, res.Event))
}

func render(p *page.Record, ev *event.Payload) Body {
	tree := json.RawMessage(p.Tree)
	if len(tree) == 0 {
		tree = json.RawMessage(page.EmptyTree)
	}
	return Body{
		Page: PageBody{
			ID:      p.ID,
			Slug:    p.Slug,
			Name:    p.Name,
			Version: p.Version,
			Tree:    tree,
		},
		Event: ev,
	}
}
