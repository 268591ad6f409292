package bearer

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jwtauth/authctx"
	apperrors "github.com/kbukum/jwtauth/errors"
)

// Gin context keys set by Gin on success.
const (
	ContextKeyIdentity = "bearer.identity"
	ContextKeyToken    = "bearer.token"
)

// decide runs the filter for r. It returns the request to continue with, or
// nil when the request must be denied.
func (f *Filter) decide(r *http.Request) *http.Request {
	path := r.URL.Path
	if hasPrefix(path, f.cfg.SkipPaths) {
		return r
	}

	res := f.Authenticate(r)
	if res.Outcome == Authenticated {
		ctx := authctx.WithIdentity(r.Context(), res.Identity)
		ctx = authctx.WithToken(ctx, res.Token)
		return r.WithContext(ctx)
	}
	if hasPrefix(path, f.cfg.OptionalPaths) {
		return r
	}
	return nil
}

// Deny writes the 401 response: the challenge header and the uniform error body.
func (f *Filter) Deny(w http.ResponseWriter) {
	f.Challenge(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(apperrors.InvalidToken().ToResponse())
}

// Middleware returns net/http middleware that denies unauthenticated requests.
// Authenticated requests carry their identity and token in the context; see
// package authctx.
func (f *Filter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := f.decide(r)
		if authed == nil {
			f.Deny(w)
			return
		}
		next.ServeHTTP(w, authed)
	})
}

// Gin returns the filter as a Gin middleware. On success the identity and
// token are available both from the request context and from the Gin context
// under ContextKeyIdentity and ContextKeyToken.
func (f *Filter) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := f.decide(c.Request)
		if r == nil {
			f.Challenge(c.Writer)
			c.AbortWithStatusJSON(http.StatusUnauthorized, apperrors.InvalidToken().ToResponse())
			return
		}
		c.Request = r
		if identity, ok := authctx.Identity[Identity](r.Context()); ok {
			c.Set(ContextKeyIdentity, identity)
		}
		if token, ok := authctx.Token(r.Context()); ok {
			c.Set(ContextKeyToken, token)
		}
		c.Next()
	}
}
