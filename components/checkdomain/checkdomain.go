// components/checkdomain/checkdomain.go
//
// Diagnostic endpoint for the authorization chain.
//
//	GET /check-domain/{host}
//
// Always 200 for business outcomes, including unauthorized ones; the body
// says why.  Only infrastructure failures return 500, with a generic body.
package checkdomain

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/eventsite/internal/authz"
	"github.com/yanizio/eventsite/internal/component"
	"github.com/yanizio/eventsite/internal/httpx"
)

// compile-time assertions
var (
	_ component.Component   = (*Comp)(nil)
	_ component.Initializer = (*Comp)(nil)
)

func init() { component.Register(&Comp{}) }

// Authorizer is satisfied by *authz.Chain.
type Authorizer interface {
	Authorize(ctx context.Context, host string) (authz.Result, error)
}

// Comp implements component.Component.
type Comp struct {
	chain Authorizer
}

// New returns a Comp bound to chain; used by tests and the CLI.
func New(chain Authorizer) *Comp { return &Comp{chain: chain} }

func (c *Comp) Name() string { return "checkdomain" }

func (c *Comp) Init(env *component.Env) error {
	c.chain = env.Chain
	return nil
}

func (c *Comp) Routes(r chi.Router) {
	r.Get("/check-domain/{host}", c.check)
}

func (c *Comp) check(w http.ResponseWriter, r *http.Request) {
	res, err := c.chain.Authorize(r.Context(), chi.URLParam(r, "host"))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
