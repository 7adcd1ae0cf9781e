package domains

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/site"
	"github.com/yanizio/eventsite/internal/validate"
)

const siteID = "7f6c1a52-2b1e-4c3b-9d1e-3c9a8f1d2e4b"

type fakeService struct {
	recs     map[string]*domain.Record
	verified int
	lastIn   domain.UpdateInput
}

func newFake() *fakeService {
	return &fakeService{recs: map[string]*domain.Record{
		"d1": {ID: "d1", SiteID: siteID, Host: "example.live", Type: domain.TypeCustom,
			DNSStatus: domain.DNSPending, SSLStatus: domain.SSLPending, IsPrimary: true},
	}}
}

func (f *fakeService) Create(_ context.Context, in domain.CreateInput) (*domain.Record, error) {
	if in.Host == "" {
		return nil, validate.Field("host", "is required")
	}
	for _, r := range f.recs {
		if r.Host == in.Host {
			return nil, domain.ErrHostTaken
		}
	}
	rec := &domain.Record{ID: "d2", SiteID: in.SiteID, Host: in.Host, Type: domain.TypeCustom}
	f.recs[rec.ID] = rec
	return rec, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*domain.Record, error) {
	if r, ok := f.recs[id]; ok {
		return r, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeService) Instructions(rec *domain.Record) []domain.Instruction {
	return []domain.Instruction{{Type: "CNAME", Name: rec.Host, Value: "sites.eventsite.app", Priority: "recommended"}}
}

func (f *fakeService) ListBySite(_ context.Context, id string) ([]domain.Record, error) {
	if id != siteID {
		return nil, site.ErrNotFound
	}
	var out []domain.Record
	for _, r := range f.recs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeService) Verify(ctx context.Context, id string) (*domain.VerifyResult, error) {
	rec, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f.verified++
	rec.DNSStatus = domain.DNSVerified
	rec.SSLStatus = domain.SSLProvisioning
	return &domain.VerifyResult{Domain: rec, Verification: domain.Verification{
		DNSVerified: true,
		DNSRecord:   "CNAME example.live -> sites.eventsite.app",
		Message:     "DNS verified",
		CheckedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}, nil
}

func (f *fakeService) Update(ctx context.Context, id string, in domain.UpdateInput) (*domain.Record, error) {
	f.lastIn = in
	rec, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.IsPrimary != nil {
		rec.IsPrimary = *in.IsPrimary
	}
	return rec, nil
}

func (f *fakeService) Delete(_ context.Context, id string) error {
	if _, ok := f.recs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

func router(c *Comp) http.Handler {
	r := chi.NewRouter()
	c.Routes(r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestCreate(t *testing.T) {
	h := router(New(newFake(), nil))

	w := do(h, http.MethodPost, "/domains", `{"site_id":"`+siteID+`","host":"new.live"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"host":"new.live"`)

	w = do(h, http.MethodPost, "/domains", `{"site_id":"`+siteID+`","host":"example.live"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(h, http.MethodPost, "/domains", `{"site_id":"`+siteID+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"host"`)

	w = do(h, http.MethodPost, "/domains", `{"site_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncludesInstructions(t *testing.T) {
	h := router(New(newFake(), nil))

	w := do(h, http.MethodGet, "/domains/d1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Domain       domain.Record        `json:"domain"`
		Instructions []domain.Instruction `json:"instructions"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "example.live", body.Domain.Host)
	require.Len(t, body.Instructions, 1)
	assert.Equal(t, "CNAME", body.Instructions[0].Type)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/domains/missing", "").Code)
}

func TestVerify(t *testing.T) {
	h := router(New(newFake(), nil))

	w := do(h, http.MethodPost, "/domains/d1/verify", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "verified", body["domain"]["dns_status"])
	assert.Equal(t, true, body["verification"]["dnsVerified"])
	assert.Equal(t, "2026-01-02T03:04:05Z", body["verification"]["checkedAt"])

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/domains/zzz/verify", "").Code)
}

func TestVerifyIsLimited(t *testing.T) {
	svc := newFake()
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	h := router(New(svc, deny))

	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/domains/d1/verify", "").Code)
	assert.Zero(t, svc.verified)
	// Other routes are not limited.
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/domains/d1", "").Code)
}

func TestUpdate(t *testing.T) {
	svc := newFake()
	h := router(New(svc, nil))

	w := do(h, http.MethodPut, "/domains/d1", `{"is_primary":false,"dns_status":"verified"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastIn.DNSStatus)
	assert.Equal(t, domain.DNSVerified, *svc.lastIn.DNSStatus)
	assert.Contains(t, w.Body.String(), `"is_primary":false`)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPut, "/domains/d1", `{"primary":true}`).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPut, "/domains/nope", `{"is_primary":true}`).Code)
}

func TestDelete(t *testing.T) {
	h := router(New(newFake(), nil))

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/domains/d1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/domains/d1", "").Code)
}

func TestListBySite(t *testing.T) {
	h := router(New(newFake(), nil))

	w := do(h, http.MethodGet, "/sites/"+siteID+"/domains", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []domain.Record
	require.NoError(t, json.NewDecoder(w.Body).Decode(&recs))
	assert.Len(t, recs, 1)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/sites/other/domains", "").Code)
}
