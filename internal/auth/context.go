// internal/auth/context.go
//
// Acting-user helpers.
//
// Usage
// -----
//
//	// Attach the acting user (done by Identify).
//	ctx = auth.WithUser(ctx, "u-123")
//
//	// Downstream code retrieves the ID.
//	id, ok := auth.UserID(ctx)   // "u-123", true
//
// Notes
// -----
// • Authentication itself happens upstream; this service trusts the
//   identity header set by the auth proxy.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader carries the authenticated user id set by the upstream proxy.
const UserHeader = "X-User-Id"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the given userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID extracts the userID from ctx.  It returns ("", false) if no user
// is set.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// Identify attaches the user from UserHeader, or defaultUserID when the
// header is absent (tenant.default_user_id).
func Identify(defaultUserID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(UserHeader))
			if id == "" {
				id = defaultUserID
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
		})
	}
}
