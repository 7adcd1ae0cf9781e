package httpx

import "net/http"

const (
	notFoundHTML = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Not found</title></head>
<body><h1>Page not found</h1><p>The page you are looking for does not exist.</p></body></html>
`
	serverErrorHTML = `<!doctype html>
<html lang="en"><head><meta charset="utf-8"><title>Error</title></head>
<body><h1>Something went wrong</h1><p>Please try again in a moment.</p></body></html>
`
)

// NotFoundPage renders the generic public 404 page.  No host, domain, or
// reason details are exposed.
func NotFoundPage(w http.ResponseWriter) {
	writeHTML(w, http.StatusNotFound, notFoundHTML)
}

// ServerErrorPage renders the generic public 500 page.
func ServerErrorPage(w http.ResponseWriter) {
	writeHTML(w, http.StatusInternalServerError, serverErrorHTML)
}

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
