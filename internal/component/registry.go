// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  At boot the app builds an
// Env, calls Init(env) on every component that implements Initializer,
// then lets each one add its routes.
//
// Two routers exist.  The platform router answers only on the host of
// http.public_base_url and carries every component's Routes.  The public
// router answers every other host (customer domains) and carries only
// what components add through PublicRoutes.

package component

import (
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Initializer is optional.  If a Component implements it, the app calls
// Init(env) once before Routes.
type Initializer interface {
	Init(*Env) error
}

// Component contract.
//
// Routes() adds the component's endpoints to the shared router, e.g:
//
//	func (c *Comp) Routes(r chi.Router) {
//		r.Get("/check-domain/{host}", c.check)
//	}
//
// chi picks the most specific pattern, so a catch-all `/*` registered by
// one component never shadows another component's routes.
type Component interface {
	Name() string
	Routes(r chi.Router)
}

// PublicRouter is optional.  Components reachable on customer hosts add
// those routes in PublicRoutes; everything else stays platform-only.
type PublicRouter interface {
	PublicRoutes(r chi.Router)
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.
func Register(c Component) {
	mu.Lock()
	registry[c.Name()] = c
	mu.Unlock()
}

// All returns every registered component ordered by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Mount initialises every registered component against env, adds its
// routes to platform, and adds its public routes (if any) to public.
func Mount(platform, public chi.Router, env *Env) error {
	for _, c := range All() {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(env); err != nil {
				return &InitError{Component: c.Name(), Err: err}
			}
		}
		c.Routes(platform)
		if p, ok := c.(PublicRouter); ok {
			p.PublicRoutes(public)
		}
	}
	return nil
}

// InitError reports which component failed to initialise.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string { return "component " + e.Component + ": " + e.Err.Error() }
func (e *InitError) Unwrap() error { return e.Err }
