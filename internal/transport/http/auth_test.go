package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/auth"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestAuthenticate(t *testing.T) {
	secret := []byte("test-secret")
	verifier := auth.NewHMACVerifier(secret)
	valid := signToken(t, secret, jwt.MapClaims{"sub": "host-1", "role": "host", "exp": time.Now().Add(time.Hour).Unix()})
	expired := signToken(t, secret, jwt.MapClaims{"sub": "host-1", "exp": time.Now().Add(-time.Hour).Unix()})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUser   string
		wantRole   auth.Role
	}{
		{"no header is anonymous", "", http.StatusTeapot, "", ""},
		{"valid token", "Bearer " + valid, http.StatusTeapot, "host-1", auth.RoleHost},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, "", ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "", ""},
		{"other scheme is anonymous", "Basic abc", http.StatusTeapot, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got auth.Context
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.FromContext(r.Context())
				w.WriteHeader(http.StatusTeapot)
			})
			req := httptest.NewRequest(http.MethodGet, "/bookings/b1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Authenticate(verifier, next, discardLogger()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if got.UserID != tt.wantUser || got.Role != tt.wantRole {
				t.Fatalf("unexpected caller: %+v", got)
			}
		})
	}
}
