package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/validate"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		name string
	}{
		{validate.Field("host", "is required"), http.StatusBadRequest, CodeValidation},
		{fmt.Errorf("%w: eof", ErrBadJSON), http.StatusBadRequest, CodeBadRequest},
		{domain.ErrNotFound, http.StatusNotFound, CodeNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrHostTaken), http.StatusConflict, CodeConflict},
		{errors.New("dial tcp: connection refused"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		WriteError(w, r, tc.err)

		assert.Equal(t, tc.code, w.Code, tc.err.Error())
		body := decodeBody(t, w)
		assert.Equal(t, tc.name, body["error"])
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("password=hunter2"))

	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "error_description")
}

func TestValidationErrorListsFields(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, httptest.NewRequest(http.MethodPost, "/", nil), validate.Field("site_id", "site does not exist"))

	body := decodeBody(t, w)
	fields := body["fields"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "site_id", fields[0].(map[string]any)["field"])
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var dst struct {
		Host string `json:"host"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"host":"a.live","hots":"x"}`))
	err := DecodeJSON(r, &dst)
	assert.ErrorIs(t, err, ErrBadJSON)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"host":"a.live"}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "a.live", dst.Host)
}

func TestGenericPages(t *testing.T) {
	w := httptest.NewRecorder()
	NotFoundPage(w)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	w = httptest.NewRecorder()
	ServerErrorPage(w)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
