package revocation

import (
	"context"
	"time"

	apperrors "github.com/kbukum/jwtauth/errors"
	"github.com/kbukum/jwtauth/jwt"
	"github.com/kbukum/jwtauth/logger"
)

const constraintName = "NotRevoked"

// ConstraintOption configures NotRevoked.
type ConstraintOption func(*notRevoked)

// FailOpen accepts tokens when the store returns an error.
func FailOpen() ConstraintOption { return func(c *notRevoked) { c.failOpen = true } }

// WithLogger sets the logger used to report store failures.
func WithLogger(l *logger.Logger) ConstraintOption { return func(c *notRevoked) { c.log = l } }

type notRevoked struct {
	store    Store
	timeout  time.Duration
	failOpen bool
	log      *logger.Logger
}

// NotRevoked rejects tokens whose "jti" is in store, and tokens without a
// "jti" since those cannot be revoked. Each lookup is bounded by timeout;
// zero means no bound.
func NotRevoked(store Store, timeout time.Duration, opts ...ConstraintOption) jwt.Constraint {
	c := &notRevoked{store: store, timeout: timeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("revocation")
	}
	return c
}

func (c *notRevoked) ConstraintName() string { return constraintName }

func (c *notRevoked) Assert(token *jwt.Token) error {
	jti := token.ID()
	if jti == "" {
		return apperrors.ConstraintViolation(constraintName, "Token has no identifier")
	}

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	revoked, err := c.store.IsRevoked(ctx, jti)
	if err != nil {
		fields := logger.ErrorFields(err)
		fields[logger.FieldTokenID] = jti
		if c.failOpen {
			c.log.Warn("revocation lookup failed, accepting token", fields)
			return nil
		}
		c.log.Error("revocation lookup failed", fields)
		return err
	}
	if revoked {
		return apperrors.ConstraintViolation(constraintName, "The token was revoked")
	}
	return nil
}

// List is the application-facing deny list.
type List struct {
	store     Store
	clock     jwt.Clock
	timeout   time.Duration
	retention time.Duration
	failOpen  bool
	log       *logger.Logger
}

// NewList wraps store with the settings from cfg. cfg must already have its
// defaults applied. A nil clock uses the system clock.
func NewList(store Store, cfg Config, clock jwt.Clock, log *logger.Logger) *List {
	if clock == nil {
		clock = jwt.SystemClock{}
	}
	if log == nil {
		log = logger.Get("revocation")
	}
	return &List{
		store:     store,
		clock:     clock,
		timeout:   cfg.Timeout,
		retention: cfg.Retention,
		failOpen:  cfg.FailOpen,
		log:       log,
	}
}

// Store returns the backing store.
func (l *List) Store() Store { return l.store }

// Revoke denies jti until the given time.
func (l *List) Revoke(ctx context.Context, jti string, until time.Time) error {
	if jti == "" {
		return apperrors.Validation("token identifier is required")
	}
	if err := l.store.Revoke(ctx, jti, until); err != nil {
		return err
	}
	l.log.Info("token revoked", logger.Fields(logger.FieldTokenID, jti, "until", until))
	return nil
}

// RevokeToken denies token until it expires, or for the configured retention
// when it carries no "exp".
func (l *List) RevokeToken(ctx context.Context, token *jwt.Token) error {
	until, ok := token.ExpiresAt()
	if !ok {
		until = l.clock.Now().Add(l.retention)
	}
	return l.Revoke(ctx, token.ID(), until)
}

// IsRevoked reports whether jti is currently denied.
func (l *List) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return l.store.IsRevoked(ctx, jti)
}

// Constraint returns the NotRevoked constraint for this list.
func (l *List) Constraint() jwt.Constraint {
	opts := []ConstraintOption{WithLogger(l.log)}
	if l.failOpen {
		opts = append(opts, FailOpen())
	}
	return NotRevoked(l.store, l.timeout, opts...)
}
