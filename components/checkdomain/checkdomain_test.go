package checkdomain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/eventsite/internal/authz"
	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/page"
)

type stubChain struct {
	res  authz.Result
	err  error
	seen string
}

func (s *stubChain) Authorize(_ context.Context, host string) (authz.Result, error) {
	s.seen = host
	return s.res, s.err
}

func serve(t *testing.T, c *Comp, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	c.Routes(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestCheckAuthorized(t *testing.T) {
	chain := &stubChain{res: authz.Result{
		Authorized: true,
		Domain:     "example.live",
		Page:       &page.Ref{ID: "p1", Slug: "home", Name: "Home"},
		DNSStatus:  domain.DNSVerified,
	}}
	w := serve(t, New(chain), "/check-domain/www.example.live")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "www.example.live", chain.seen)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, true, body["authorized"])
	assert.Equal(t, "home", body["page"].(map[string]any)["slug"])
	assert.NotContains(t, body, "reason")
}

func TestCheckUnauthorizedIs200(t *testing.T) {
	chain := &stubChain{res: authz.Result{
		Domain:    "pending.live",
		Reason:    authz.ReasonDNSNotVerified,
		DNSStatus: domain.DNSPending,
	}}
	w := serve(t, New(chain), "/check-domain/pending.live")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, false, body["authorized"])
	assert.Equal(t, "Domain DNS not verified", body["reason"])
	assert.Equal(t, "pending", body["dnsStatus"])
	assert.NotContains(t, body, "page")
}

func TestCheckUpstreamFailureIs500(t *testing.T) {
	chain := &stubChain{err: errors.New("dial tcp 10.0.0.1:3306: connection refused")}
	w := serve(t, New(chain), "/check-domain/example.live")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}
