// Package auth turns bearer tokens from the identity provider into an
// explicit caller value that every service call receives.
package auth

import (
	"context"

	"github.com/johnagbike-dotcom/nesta-client-sub000/internal/domain"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

// Context identifies the caller. The zero value is an anonymous caller.
type Context struct {
	UserID string
	Role   Role
}

func (c Context) Authenticated() bool {
	return c.UserID != ""
}

func (c Context) IsAdmin() bool {
	return c.Authenticated() && c.Role == RoleAdmin
}

// Require fails with ErrUnauthenticated for anonymous callers.
func (c Context) Require() error {
	if !c.Authenticated() {
		return domain.ErrUnauthenticated
	}
	return nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, ac)
}

// FromContext returns the caller stored by the HTTP middleware, or an
// anonymous caller.
func FromContext(ctx context.Context) Context {
	ac, _ := ctx.Value(ctxKey{}).(Context)
	return ac
}
