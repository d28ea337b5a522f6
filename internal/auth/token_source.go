package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
)

// TokenSource hands out credentials for outbound calls. forceRefresh asks
// for a fresh token after the previous one was rejected.
type TokenSource interface {
	AcquireAuthToken(ctx context.Context, forceRefresh bool) (string, error)
}

// StaticToken never changes, so a refresh returns the same value.
type StaticToken string

func (s StaticToken) AcquireAuthToken(context.Context, bool) (string, error) {
	return string(s), nil
}

// CachedTokenSource memoizes the result of Fetch until a refresh is forced.
type CachedTokenSource struct {
	Fetch func(ctx context.Context) (string, error)

	mu    sync.Mutex
	token string
}

func (c *CachedTokenSource) AcquireAuthToken(ctx context.Context, forceRefresh bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && !forceRefresh {
		return c.token, nil
	}
	token, err := c.Fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// FileToken reads the token from path, and reads it again after a rejected
// call so a rotated secret is picked up without a restart.
func FileToken(path string) *CachedTokenSource {
	return &CachedTokenSource{Fetch: func(context.Context) (string, error) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read token file: %w", err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", path)
		}
		return token, nil
	}}
}

// Transport attaches a bearer token and retries once with a refreshed token
// when the server answers 401.
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.AcquireAuthToken(req.Context(), false)
	if err != nil {
		return nil, err
	}
	resp, err := t.send(req, token, false)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	token, err = t.Source.AcquireAuthToken(req.Context(), true)
	if err != nil {
		return nil, err
	}
	return t.send(req, token, true)
}

func (t *Transport) send(req *http.Request, token string, replay bool) (*http.Response, error) {
	out := req.Clone(req.Context())
	if replay && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	return t.base().RoundTrip(out)
}
