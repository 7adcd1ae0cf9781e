// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/authz"
)

// Authorizer is the slice of *authz.Chain that ForceHTTPS needs.
type Authorizer interface {
	Authorize(ctx context.Context, host string) (authz.Result, error)
}

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not
// “localhost”, and the chain authorizes the host, the wrapper issues a
// 308 Permanent Redirect to the HTTPS version of the same URL.  Otherwise it
// calls the next handler unchanged.
func ForceHTTPS(chain Authorizer, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Already HTTPS (directly or at the proxy) or dev host → continue.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" ||
			stripPort(r.Host) == "localhost" {
			h.ServeHTTP(w, r)
			return
		}

		// Only redirect hosts that would actually serve a page.
		res, err := chain.Authorize(r.Context(), r.Host)
		if err != nil {
			zap.S().Warnw("https redirect: authorize failed", "host", r.Host, "err", err)
		}
		if err == nil && res.Authorized {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		// Unknown host → keep normal flow (likely 404 later).
		h.ServeHTTP(w, r)
	})
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
