package http

import (
	"log"
	"net/http"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
)

type TokenVerifier interface {
	Verify(raw string) (auth.Context, error)
}

// Authenticate attaches the caller to the request context. Requests
// without a bearer token continue as anonymous; services decide whether
// that is enough. A token that fails verification is rejected here.
func Authenticate(verifier TokenVerifier, next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := auth.BearerToken(r.Header.Get("Authorization"))
		if !ok || verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		ac, err := verifier.Verify(raw)
		if err != nil {
			if logger != nil {
				logger.Printf("auth rejected path=%s err=%v", r.URL.Path, err)
			}
			writeDomainError(w, logger, err)
			return
		}
		noteCaller(r.Context(), ac)
		next.ServeHTTP(w, r.WithContext(auth.WithContext(r.Context(), ac)))
	})
}
