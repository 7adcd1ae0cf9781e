package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIdentify(t *testing.T) {
	var got string
	h := Identify("default-user")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "default-user" {
		t.Fatalf("want default-user, got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(UserHeader, " u-42 ")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "u-42" {
		t.Fatalf("want u-42, got %q", got)
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); ok {
		t.Fatal("expected no user")
	}
}
