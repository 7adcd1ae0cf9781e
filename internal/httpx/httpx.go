// internal/httpx/httpx.go
//
// JSON response helpers and error-to-status mapping shared by components.
//
// Error body
// ----------
//
//	{"error": "<code>", "error_description": "<text>", "fields": [...]}
//
// error_description and fields are omitted for internal errors; the full
// error is logged server-side with the request id instead.
//
// Mapping
// -------
//   - *validate.Error                         -> 400 validation_failed
//   - ErrBadJSON                              -> 400 bad_request
//   - domain/site/page/event ErrNotFound      -> 404 not_found
//   - domain.ErrHostTaken, page.ErrSlugTaken  -> 409 conflict
//   - anything else                           -> 500 internal_error
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/eventsite/internal/domain"
	"github.com/yanizio/eventsite/internal/event"
	"github.com/yanizio/eventsite/internal/page"
	"github.com/yanizio/eventsite/internal/site"
	"github.com/yanizio/eventsite/internal/validate"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// ErrBadJSON wraps body decoding failures.
var ErrBadJSON = errors.New("malformed JSON body")

// Codes used in error bodies.
const (
	CodeValidation  = "validation_failed"
	CodeBadRequest  = "bad_request"
	CodeNotFound    = "not_found"
	CodeConflict    = "conflict"
	CodeRateLimited = "rate_limited"
	CodeInternal    = "internal_error"
)

type errorBody struct {
	Error       string                `json:"error"`
	Description string                `json:"error_description,omitempty"`
	Fields      []validate.FieldError `json:"fields,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Warnw("write json response", "err", err)
	}
}

// WriteErrorCode writes an error body with an explicit status and code.
func WriteErrorCode(w http.ResponseWriter, status int, code, desc string) {
	WriteJSON(w, status, errorBody{Error: code, Description: desc})
}

// WriteError maps err to a status and writes the error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validate.Error
	switch {
	case errors.As(err, &ve):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: CodeValidation, Description: ve.Error(), Fields: ve.Fields})
	case errors.Is(err, ErrBadJSON):
		WriteErrorCode(w, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, site.ErrNotFound),
		errors.Is(err, page.ErrNotFound), errors.Is(err, event.ErrNotFound):
		WriteErrorCode(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, domain.ErrHostTaken), errors.Is(err, page.ErrSlugTaken):
		WriteErrorCode(w, http.StatusConflict, CodeConflict, err.Error())
	default:
		LogUpstream(r, err)
		WriteErrorCode(w, http.StatusInternalServerError, CodeInternal, "")
	}
}

// LogUpstream records an infrastructure failure with request context.
func LogUpstream(r *http.Request, err error) {
	zap.L().Error("upstream failure",
		zap.Error(err),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("host", r.Host),
	)
}

// DecodeJSON reads one JSON object from r into dst.  Unknown fields are
// rejected so typos in admin requests surface as 400s.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	return nil
}
