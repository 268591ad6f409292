// Package bearer authenticates HTTP requests carrying a JWT access token in
// a header such as "Authorization: Bearer <token>".
//
// The filter is deliberately uniform: a missing header, a malformed token and
// a token failing its constraints all end in a 401 with the same challenge, so
// callers learn nothing about why a credential was refused.
package bearer

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/logger"
	"github.com/kbukum/jwtauth/observability"
)

// Outcome is the result of authenticating a single request.
type Outcome int

const (
	// NoCredential means the header was absent or did not match the schema.
	NoCredential Outcome = iota
	// Rejected means a credential was presented but not accepted.
	Rejected
	// Authenticated means the token was accepted and an identity resolved.
	Authenticated
)

func (o Outcome) String() string {
	switch o {
	case NoCredential:
		return "no_credential"
	case Rejected:
		return "rejected"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Identity is the application's notion of an authenticated principal.
type Identity interface {
	ID() string
}

// IdentityFunc resolves an identity from a validated token. tag is the
// filter's configured name. Returning a nil identity rejects the request.
type IdentityFunc func(ctx context.Context, token *jwt.Token, tag string) (Identity, error)

// AccessTokenLogin is the host's login-by-access-token mechanism. It receives
// the token's string form.
type AccessTokenLogin interface {
	LoginByAccessToken(ctx context.Context, token string, tag string) (Identity, error)
}

// AccessTokenLoginFunc adapts a function to AccessTokenLogin.
type AccessTokenLoginFunc func(ctx context.Context, token string, tag string) (Identity, error)

// LoginByAccessToken calls f.
func (f AccessTokenLoginFunc) LoginByAccessToken(ctx context.Context, token, tag string) (Identity, error) {
	return f(ctx, token, tag)
}

// TokenLoader is satisfied by *jwt.JWT.
type TokenLoader interface {
	LoadToken(raw string, validate, throwOnFailure bool) (*jwt.Token, error)
}

// Recorder receives one call per authenticated request.
type Recorder interface {
	RequestAuthenticated(ctx context.Context, outcome string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RequestAuthenticated(context.Context, string, time.Duration) {}

// Result describes how a request was authenticated.
type Result struct {
	Outcome  Outcome
	Identity Identity
	Token    *jwt.Token
}

// Filter is the bearer authentication filter. It is safe for concurrent use.
type Filter struct {
	cfg       Config
	loader    TokenLoader
	identify  IdentityFunc
	login     AccessTokenLogin
	recorder  Recorder
	log       *logger.Logger
	pattern   *regexp.Regexp
	challenge string
}

// Option configures a Filter.
type Option func(*Filter)

// WithIdentityFunc resolves identities from the token itself.
func WithIdentityFunc(fn IdentityFunc) Option { return func(f *Filter) { f.identify = fn } }

// WithAccessTokenLogin delegates identity resolution to the host. It is used
// only when no IdentityFunc is set.
func WithAccessTokenLogin(l AccessTokenLogin) Option { return func(f *Filter) { f.login = l } }

// WithLogger sets the logger. Defaults to logger.Get("bearer").
func WithLogger(l *logger.Logger) Option { return func(f *Filter) { f.log = l } }

// WithRecorder records request outcomes.
func WithRecorder(r Recorder) Option { return func(f *Filter) { f.recorder = r } }

// NewFilter creates a filter. Either an IdentityFunc or an AccessTokenLogin
// is required.
func NewFilter(cfg Config, loader TokenLoader, opts ...Option) (*Filter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Configuration("%v", err).WithCause(err)
	}
	if loader == nil {
		return nil, apperrors.Configuration("bearer: a token loader is required")
	}

	f := &Filter{cfg: cfg, loader: loader, recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(f)
	}
	if f.identify == nil && f.login == nil {
		return nil, apperrors.Configuration("bearer: an identity function or access token login is required")
	}
	if f.log == nil {
		f.log = logger.Get("bearer")
	}

	pattern, err := regexp.Compile(`^` + regexp.QuoteMeta(cfg.Schema) + `\s+(.*?)$`)
	if err != nil {
		return nil, apperrors.Configuration("bearer: invalid schema %q", cfg.Schema).WithCause(err)
	}
	f.pattern = pattern
	f.challenge = fmt.Sprintf(
		`%s realm="%s", error="invalid_token", error_description="The access token invalid or expired"`,
		cfg.Schema, cfg.Realm,
	)
	return f, nil
}

// Config returns the effective configuration.
func (f *Filter) Config() Config { return f.cfg }

// Authenticate resolves the request's credential. Every failure collapses to
// NoCredential or Rejected; errors never reach the caller.
func (f *Filter) Authenticate(r *http.Request) Result {
	ctx, span := observability.StartSpan(r.Context(), "bearer.Authenticate")
	defer span.End()
	start := time.Now()

	res := f.authenticate(ctx, r)

	span.SetAttributes(attribute.String("auth.outcome", res.Outcome.String()))
	if res.Outcome == Authenticated {
		span.SetStatus(codes.Ok, "")
	}
	f.recorder.RequestAuthenticated(ctx, res.Outcome.String(), time.Since(start))
	return res
}

func (f *Filter) authenticate(ctx context.Context, r *http.Request) Result {
	values := r.Header.Values(f.cfg.Header)
	if len(values) == 0 || values[0] == "" {
		return Result{Outcome: NoCredential}
	}
	m := f.pattern.FindStringSubmatch(values[0])
	if m == nil {
		return Result{Outcome: NoCredential}
	}

	token, err := f.loader.LoadToken(m[1], true, false)
	if err != nil {
		f.log.WithContext(ctx).Debug("bearer token refused", logger.ErrorFields(err))
		return Result{Outcome: Rejected}
	}
	if token == nil {
		return Result{Outcome: Rejected}
	}

	identity, err := f.resolve(ctx, token)
	if err != nil {
		f.log.WithContext(ctx).Debug("identity resolution failed", logger.ErrorFields(err))
		return Result{Outcome: Rejected}
	}
	if isNilIdentity(identity) {
		return Result{Outcome: Rejected}
	}
	return Result{Outcome: Authenticated, Identity: identity, Token: token}
}

func (f *Filter) resolve(ctx context.Context, token *jwt.Token) (Identity, error) {
	if f.identify != nil {
		return f.identify(ctx, token, f.cfg.Name)
	}
	return f.login.LoginByAccessToken(ctx, token.String(), f.cfg.Name)
}

// isNilIdentity reports a nil interface as well as a typed nil such as
// (*User)(nil) wrapped in an Identity.
func isNilIdentity(identity Identity) bool {
	if identity == nil {
		return true
	}
	v := reflect.ValueOf(identity)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// ChallengeValue is the WWW-Authenticate value sent with a denial.
func (f *Filter) ChallengeValue() string { return f.challenge }

// Challenge sets the WWW-Authenticate header on w.
func (f *Filter) Challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", f.challenge)
}
