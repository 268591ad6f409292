package jwt

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// Constraint is a single validation rule. Assert returns nil when the token
// satisfies it and a ConstraintViolation error otherwise.
type Constraint interface {
	Assert(token *Token) error
}

// ConstraintFunc adapts a function to Constraint. Its Name is used in
// violation details.
type ConstraintFunc struct {
	Name string
	Fn   func(token *Token) error
}

func (c ConstraintFunc) Assert(token *Token) error { return c.Fn(token) }

func (c ConstraintFunc) ConstraintName() string { return c.Name }

// constraintName is the name reported for c in violation details.
func constraintName(c Constraint) string {
	if n, ok := c.(interface{ ConstraintName() string }); ok && n.ConstraintName() != "" {
		return n.ConstraintName()
	}
	name := fmt.Sprintf("%T", c)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

func violation(c Constraint, format string, args ...any) error {
	return apperrors.ConstraintViolation(constraintName(c), fmt.Sprintf(format, args...))
}

// SignedWithConstraint checks the "alg" header and the signature.
type SignedWithConstraint struct {
	signer Signer
	key    *Key
}

// SignedWith requires the token to be signed by signer with key.
func SignedWith(signer Signer, key *Key) *SignedWithConstraint {
	return &SignedWithConstraint{signer: signer, key: key}
}

func (c *SignedWithConstraint) ConstraintName() string { return "SignedWith" }

func (c *SignedWithConstraint) Assert(token *Token) error {
	if token.Algorithm() != string(c.signer.ID()) {
		return violation(c, "Token signer mismatch")
	}
	if err := c.signer.Verify(token.signature, []byte(token.Payload()), c.key); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeKeyIO) || apperrors.HasCode(err, apperrors.ErrCodeConfiguration) ||
			apperrors.HasCode(err, apperrors.ErrCodeCannotDecodeContent) {
			return err
		}
		return apperrors.ConstraintViolation(c.ConstraintName(), "Token signature mismatch").WithCause(err)
	}
	return nil
}

// ValidAtConstraint checks "iat", "nbf" and "exp" against a clock.
type ValidAtConstraint struct {
	clock  Clock
	leeway time.Duration
	strict bool
}

// StrictValidAt requires "iat", "nbf" and "exp" to be present and the token
// to be usable at the clock's current time, allowing leeway in both
// directions.
func StrictValidAt(clock Clock, leeway time.Duration) *ValidAtConstraint {
	return &ValidAtConstraint{clock: clock, leeway: leeway, strict: true}
}

// LooseValidAt is StrictValidAt without the presence requirement: missing
// time claims pass.
func LooseValidAt(clock Clock, leeway time.Duration) *ValidAtConstraint {
	return &ValidAtConstraint{clock: clock, leeway: leeway}
}

func (c *ValidAtConstraint) ConstraintName() string {
	if c.strict {
		return "StrictValidAt"
	}
	return "LooseValidAt"
}

func (c *ValidAtConstraint) Assert(token *Token) error {
	if c.leeway < 0 {
		return apperrors.Configuration("%s: leeway cannot be negative", c.ConstraintName())
	}
	if c.strict {
		for _, name := range []string{ClaimIssuedAt, ClaimNotBefore, ClaimExpiresAt} {
			if !token.claims.Has(name) {
				return violation(c, "%q claim missing", name)
			}
		}
	}

	now := c.clock.Now()
	if !token.HasBeenIssuedBefore(now.Add(c.leeway)) {
		return violation(c, "The token was issued in the future")
	}
	if !token.IsMinimumTimeBefore(now.Add(c.leeway)) {
		return violation(c, "The token cannot be used yet")
	}
	if token.IsExpired(now.Add(-c.leeway)) {
		return violation(c, "The token is expired")
	}
	return nil
}

// IssuedByConstraint checks "iss".
type IssuedByConstraint struct{ issuers []string }

// IssuedBy requires "iss" to be one of issuers.
func IssuedBy(issuers ...string) *IssuedByConstraint {
	return &IssuedByConstraint{issuers: slices.Clone(issuers)}
}

func (c *IssuedByConstraint) ConstraintName() string { return "IssuedBy" }

func (c *IssuedByConstraint) Assert(token *Token) error {
	if !token.HasBeenIssuedBy(c.issuers...) {
		return violation(c, "The token was not issued by the given issuers")
	}
	return nil
}

// PermittedForConstraint checks "aud".
type PermittedForConstraint struct{ audience string }

// PermittedFor requires audience to be listed in "aud".
func PermittedFor(audience string) *PermittedForConstraint {
	return &PermittedForConstraint{audience: audience}
}

func (c *PermittedForConstraint) ConstraintName() string { return "PermittedFor" }

func (c *PermittedForConstraint) Assert(token *Token) error {
	if !token.IsPermittedFor(c.audience) {
		return violation(c, "The token is not allowed to be used by this audience")
	}
	return nil
}

// IdentifiedByConstraint checks "jti".
type IdentifiedByConstraint struct{ id string }

// IdentifiedBy requires "jti" to equal id.
func IdentifiedBy(id string) *IdentifiedByConstraint {
	return &IdentifiedByConstraint{id: id}
}

func (c *IdentifiedByConstraint) ConstraintName() string { return "IdentifiedBy" }

func (c *IdentifiedByConstraint) Assert(token *Token) error {
	if !token.IsIdentifiedBy(c.id) {
		return violation(c, "The token is not identified with the expected ID")
	}
	return nil
}

// RelatedToConstraint checks "sub".
type RelatedToConstraint struct{ subject string }

// RelatedTo requires "sub" to equal subject.
func RelatedTo(subject string) *RelatedToConstraint {
	return &RelatedToConstraint{subject: subject}
}

func (c *RelatedToConstraint) ConstraintName() string { return "RelatedTo" }

func (c *RelatedToConstraint) Assert(token *Token) error {
	if !token.IsRelatedTo(c.subject) {
		return violation(c, "The token is not related to the expected subject")
	}
	return nil
}

// HasClaimConstraint checks that a claim is present and, optionally, its value.
type HasClaimConstraint struct {
	name      string
	value     any
	withValue bool
}

// HasClaim requires the claim to be present.
func HasClaim(name string) *HasClaimConstraint {
	return &HasClaimConstraint{name: name}
}

// HasClaimWithValue requires the claim to be present with the given value.
// JSON numbers compare equal to Go numeric values of the same magnitude.
func HasClaimWithValue(name string, value any) *HasClaimConstraint {
	return &HasClaimConstraint{name: name, value: value, withValue: true}
}

func (c *HasClaimConstraint) ConstraintName() string {
	if c.withValue {
		return "HasClaimWithValue"
	}
	return "HasClaim"
}

func (c *HasClaimConstraint) Assert(token *Token) error {
	actual, ok := token.Claim(c.name)
	if !ok {
		return violation(c, "The token does not have the claim %q", c.name)
	}
	if c.withValue && !claimEquals(actual, c.value) {
		return violation(c, "The claim %q does not have the expected value", c.name)
	}
	return nil
}

func claimEquals(actual, expected any) bool {
	n, ok := actual.(json.Number)
	if !ok {
		return reflect.DeepEqual(actual, expected)
	}
	switch e := expected.(type) {
	case json.Number:
		return n == e
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return n.String() == fmt.Sprint(e)
	case float32, float64:
		f, err := n.Float64()
		return err == nil && f == reflect.ValueOf(e).Float()
	default:
		return false
	}
}
