package http

import "net/http"

// NotFoundHandler answers unknown routes with the JSON error envelope,
// naming the route that was asked for.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "no route for "+r.Method+" "+r.URL.Path)
	})
}
