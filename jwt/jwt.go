// Package jwt issues, parses and validates JSON Web Tokens in the JWS
// compact serialization.
//
// The pieces compose bottom-up: a Key holds signer key material, a Signer
// from the SignerRegistry signs and verifies with it, a Builder encodes and
// signs claims, a Parser decodes untrusted strings into a Token, and a
// Validator applies Constraints to a Token. The JWT component wires them from
// a Config and offers LoadToken, the single entry point for untrusted input.
//
//	j, err := jwt.New(cfg, jwt.WithConstraints(jwt.IssuedBy("https://auth.example.com")))
//	token, err := j.LoadToken(raw, true, true)
//
// Validation adds no implicit checks. Without a SignedWith constraint,
// forged tokens are accepted.
package jwt

import (
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/logger"
)

// Load outcomes reported to the Recorder.
const (
	OutcomeAccepted    = "accepted"
	OutcomeUnvalidated = "unvalidated"
	OutcomeMalformed   = "malformed"
	OutcomeRejected    = "rejected"
)

// Recorder receives token lifecycle events, typically for metrics.
type Recorder interface {
	TokenIssued(algorithm string)
	TokenLoaded(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) TokenIssued(string) {}
func (nopRecorder) TokenLoaded(string) {}

// JWT is the configured token component. It is safe for concurrent use.
type JWT struct {
	cfg       Config
	registry  *SignerRegistry
	signer    Signer
	key       *Key
	verifyKey *Key

	encoder   Encoder
	decoder   Decoder
	formatter ClaimsFormatter
	builder   *Builder

	constraints []Constraint
	factories   []func() Constraint
	clock       Clock

	log      *logger.Logger
	recorder Recorder
	newID    func() string

	parserOnce    sync.Once
	parser        *Parser
	validatorOnce sync.Once
	validator     *Validator
}

type options struct {
	log         *logger.Logger
	signers     []Signer
	keyContents *KeyContents
	constraints []Constraint
	factories   []func() Constraint
	encoder     Encoder
	decoder     Decoder
	formatter   ClaimsFormatter
	clock       Clock
	recorder    Recorder
	newID       func() string
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger. The default is logger.Get("jwt").
func WithLogger(l *logger.Logger) Option { return func(o *options) { o.log = l } }

// WithSigners replaces the default signer set.
func WithSigners(signers ...Signer) Option { return func(o *options) { o.signers = signers } }

// WithKeyContents supplies the signing key contents, overriding
// Config.KeyContents. Use Supplied to read a secret lazily.
func WithKeyContents(c KeyContents) Option { return func(o *options) { o.keyContents = &c } }

// WithConstraints appends constraints after the ones declared in
// Config.Validation.
func WithConstraints(cs ...Constraint) Option {
	return func(o *options) { o.constraints = append(o.constraints, cs...) }
}

// WithConstraintFactories appends constraints built anew on every load.
func WithConstraintFactories(fns ...func() Constraint) Option {
	return func(o *options) { o.factories = append(o.factories, fns...) }
}

// WithEncoder sets the encoder used by builders.
func WithEncoder(e Encoder) Option { return func(o *options) { o.encoder = e } }

// WithDecoder sets the decoder used by the parser.
func WithDecoder(d Decoder) Option { return func(o *options) { o.decoder = d } }

// WithFormatter sets the claims formatter used by builders.
func WithFormatter(f ClaimsFormatter) Option { return func(o *options) { o.formatter = f } }

// WithClock sets the clock for time constraints and Issue.
func WithClock(c Clock) Option { return func(o *options) { o.clock = c } }

// WithRecorder sets the event recorder.
func WithRecorder(r Recorder) Option { return func(o *options) { o.recorder = r } }

// WithIDGenerator sets the "jti" generator used by Issue. The default is a
// random UUID.
func WithIDGenerator(fn func() string) Option { return func(o *options) { o.newID = fn } }

// New resolves the signer, keys and constraints described by cfg.
func New(cfg Config, opts ...Option) (*JWT, error) {
	o := options{
		encoder:   JoseEncoder{},
		decoder:   JoseEncoder{},
		formatter: DefaultClaimsFormatter(),
		clock:     SystemClock{},
		recorder:  nopRecorder{},
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("jwt")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry, err := NewSignerRegistry(o.signers...)
	if err != nil {
		return nil, err
	}
	signer, err := registry.SignerFor(SignerID(cfg.Signer))
	if err != nil {
		return nil, err
	}

	contents := Literal(cfg.KeyContents)
	if o.keyContents != nil {
		contents = *o.keyContents
	}
	key, err := ResolveKey(KeyKind(cfg.KeyKind), contents, cfg.KeyPassphrase)
	if err != nil {
		return nil, err
	}
	verifyKey := key
	if cfg.VerifyKeyKind != "" {
		verifyKey, err = ResolveKey(KeyKind(cfg.VerifyKeyKind), Literal(cfg.VerifyKeyContents), cfg.VerifyKeyPassphrase)
		if err != nil {
			return nil, err
		}
	}

	j := &JWT{
		cfg:       cfg,
		registry:  registry,
		signer:    signer,
		key:       key,
		verifyKey: verifyKey,
		encoder:   o.encoder,
		decoder:   o.decoder,
		formatter: o.formatter,
		builder:   NewBuilder(o.encoder, o.formatter),
		clock:     o.clock,
		factories: o.factories,
		log:       o.log,
		recorder:  o.recorder,
		newID:     o.newID,
	}
	j.constraints = append(cfg.Validation.Constraints(signer, verifyKey, o.clock), o.constraints...)

	if len(j.constraints) == 0 && len(j.factories) == 0 {
		j.log.Warn("no token constraints configured: every parseable token will be accepted, including forged ones",
			logger.Fields(logger.FieldSigner, cfg.Signer))
	}
	if key.Kind() == KeyEmpty {
		j.log.Warn("signer key kind is \"empty\": tokens are signed with a public placeholder key")
	}
	return j, nil
}

// Builder returns an empty builder using the configured encoder and formatter.
func (j *JWT) Builder() *Builder { return j.builder }

// Signer returns the configured signer.
func (j *JWT) Signer() Signer { return j.signer }

// SignerFor returns the registered signer for id.
func (j *JWT) SignerFor(id SignerID) (Signer, error) { return j.registry.SignerFor(id) }

// SignerKey returns the configured signing key.
func (j *JWT) SignerKey() *Key { return j.key }

// VerifyKey returns the key used by the configured signature constraint.
func (j *JWT) VerifyKey() *Key { return j.verifyKey }

// Clock returns the configured clock.
func (j *JWT) Clock() Clock { return j.clock }

// Parser returns the shared parser, creating it on first use.
func (j *JWT) Parser() *Parser {
	j.parserOnce.Do(func() { j.parser = NewParser(j.decoder) })
	return j.parser
}

// Validator returns the shared validator, creating it on first use.
func (j *JWT) Validator() *Validator {
	j.validatorOnce.Do(func() { j.validator = NewValidator() })
	return j.validator
}

// Parse parses raw without validating it.
func (j *JWT) Parse(raw string) (*Token, error) {
	return j.Parser().Parse(raw)
}

// Validate reports whether token satisfies every constraint given.
func (j *JWT) Validate(token *Token, constraints ...Constraint) bool {
	return j.Validator().Validate(token, constraints...)
}

// Assert returns the first constraint failure.
func (j *JWT) Assert(token *Token, constraints ...Constraint) error {
	return j.Validator().Assert(token, constraints...)
}

// Constraints returns the configured constraints followed by freshly built
// factory constraints.
func (j *JWT) Constraints() []Constraint {
	cs := make([]Constraint, 0, len(j.constraints)+len(j.factories))
	cs = append(cs, j.constraints...)
	for _, fn := range j.factories {
		if c := fn(); c != nil {
			cs = append(cs, c)
		}
	}
	return cs
}

// LoadToken parses raw and, when validate is set, applies the configured
// constraints.
//
// With throwOnFailure set, parse errors and the first constraint failure are
// returned. Without it, a malformed token is logged and any failure yields
// (nil, nil), so callers cannot tell why the token was refused.
//
// validate=false returns the token unverified and must not be used to
// authenticate. With no constraints configured, every parseable token is
// accepted.
func (j *JWT) LoadToken(raw string, validate, throwOnFailure bool) (*Token, error) {
	token, err := j.Parse(raw)
	if err != nil {
		j.recorder.TokenLoaded(OutcomeMalformed)
		if throwOnFailure || !IsMalformed(err) {
			return nil, err
		}
		j.log.Warn("Invalid JWT provided: "+errorMessage(err), logger.ErrorFields(err))
		return nil, nil
	}

	if !validate {
		j.recorder.TokenLoaded(OutcomeUnvalidated)
		return token, nil
	}

	if constraints := j.Constraints(); len(constraints) > 0 {
		if err := j.Assert(token, constraints...); err != nil {
			j.recorder.TokenLoaded(OutcomeRejected)
			if throwOnFailure {
				return nil, err
			}
			j.log.Debug("token rejected", logger.Fields(logger.FieldReason, errorMessage(err), logger.FieldTokenID, token.ID()))
			return nil, nil
		}
	}

	j.recorder.TokenLoaded(OutcomeAccepted)
	return token, nil
}

// Issue builds and signs a token with the configured signer and key. The
// configured issuer and audience are applied first, then customize. "iat",
// "nbf" and "jti" are filled in when customize leaves them unset, and "exp"
// when a TTL is configured.
func (j *JWT) Issue(customize func(b *Builder) *Builder) (*Token, error) {
	now := j.clock.Now()

	b := j.Builder()
	if j.cfg.Issuer != "" {
		b = b.IssuedBy(j.cfg.Issuer)
	}
	if len(j.cfg.Audience) > 0 {
		b = b.PermittedFor(j.cfg.Audience...)
	}
	if customize != nil {
		b = customize(b)
	}
	if !b.Has(ClaimIssuedAt) {
		b = b.IssuedAt(now)
	}
	if !b.Has(ClaimNotBefore) {
		b = b.CanOnlyBeUsedAfter(now)
	}
	if !b.Has(ClaimID) {
		b = b.IdentifiedBy(j.newID())
	}
	if j.cfg.TTL > 0 && !b.Has(ClaimExpiresAt) {
		b = b.ExpiresAt(now.Add(j.cfg.TTL))
	}

	token, err := b.GetToken(j.signer, j.key)
	if err != nil {
		return nil, err
	}
	j.recorder.TokenIssued(string(j.signer.ID()))
	return token, nil
}

func errorMessage(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
