// Package authctx carries the outcome of bearer authentication through a
// request context.
//
// The identity type belongs to the application, so lookups are generic:
//
//	ctx = authctx.WithIdentity(ctx, user)
//	user, ok := authctx.Identity[*User](ctx)
//	token, ok := authctx.Token(ctx)
package authctx

import (
	"context"

	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/jwt"
)

type identityKey struct{}

type tokenKey struct{}

// ErrNoIdentity is returned when the context holds no identity of the requested type.
var ErrNoIdentity = apperrors.Unauthorized("no authenticated identity in context")

// WithIdentity stores the authenticated identity.
func WithIdentity(ctx context.Context, identity any) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// WithToken stores the validated access token.
func WithToken(ctx context.Context, token *jwt.Token) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// Identity returns the stored identity when it is present and of type T.
func Identity[T any](ctx context.Context) (T, bool) {
	identity, ok := ctx.Value(identityKey{}).(T)
	return identity, ok
}

// MustIdentity is Identity for handlers mounted behind the bearer middleware.
// It panics when no identity of type T is present.
func MustIdentity[T any](ctx context.Context) T {
	identity, ok := Identity[T](ctx)
	if !ok {
		panic("authctx: identity not found in context or wrong type")
	}
	return identity
}

// IdentityOrError returns ErrNoIdentity instead of a boolean.
func IdentityOrError[T any](ctx context.Context) (T, error) {
	identity, ok := Identity[T](ctx)
	if !ok {
		var zero T
		return zero, ErrNoIdentity
	}
	return identity, nil
}

// Token returns the access token the request was authenticated with.
func Token(ctx context.Context) (*jwt.Token, bool) {
	token, ok := ctx.Value(tokenKey{}).(*jwt.Token)
	return token, ok && token != nil
}

// Authenticated reports whether the context carries an identity.
func Authenticated(ctx context.Context) bool {
	return ctx.Value(identityKey{}) != nil
}
