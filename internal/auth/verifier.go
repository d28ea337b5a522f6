package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/golang-jwt/jwt/v4"
	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

// Claims is the token payload issued by the identity provider. Providers
// that put the uid in a dedicated claim set UserID; others use sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier struct {
	keyFunc  jwt.Keyfunc
	methods  []string
	issuer   string
	audience string
	jwks     *keyfunc.JWKS
}

type VerifierOption func(*Verifier)

func WithIssuer(iss string) VerifierOption {
	return func(v *Verifier) { v.issuer = iss }
}

func WithAudience(aud string) VerifierOption {
	return func(v *Verifier) { v.audience = aud }
}

// NewHMACVerifier accepts HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keyFunc: func(*jwt.Token) (interface{}, error) { return secret, nil },
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewJWKSVerifier accepts RS256 tokens whose keys are published at jwksURL.
// Keys are refreshed in the background until Close is called.
func NewJWKSVerifier(jwksURL string, logger *log.Logger, opts ...VerifierOption) (*Verifier, error) {
	if logger == nil {
		logger = log.Default()
	}
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Printf("WARN: jwks refresh failed url=%s err=%v", jwksURL, err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load jwks: %w", err)
	}
	v := &Verifier{
		keyFunc: jwks.Keyfunc,
		methods: []string{jwt.SigningMethodRS256.Alg()},
		jwks:    jwks,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify parses a raw token into a caller.
func (v *Verifier) Verify(raw string) (Context, error) {
	if raw == "" {
		return Context{}, domain.ErrUnauthenticated
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, v.keyFunc, jwt.WithValidMethods(v.methods))
	if err != nil || !token.Valid {
		return Context{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, errOrInvalid(err))
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Context{}, fmt.Errorf("%w: unexpected issuer", domain.ErrUnauthenticated)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return Context{}, fmt.Errorf("%w: unexpected audience", domain.ErrUnauthenticated)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return Context{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}

	role := Role(claims.Role)
	if role == "" {
		role = RoleGuest
	}
	return Context{UserID: uid, Role: role}, nil
}

// Close stops the background JWKS refresh, if any.
func (v *Verifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func errOrInvalid(err error) error {
	if err == nil {
		return errors.New("invalid token")
	}
	return err
}
