package jwt

import (
	"slices"
	"time"
)

// Registered claim names.
const (
	ClaimIssuer    = "iss"
	ClaimSubject   = "sub"
	ClaimAudience  = "aud"
	ClaimExpiresAt = "exp"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
	ClaimID        = "jti"
)

// Header names.
const (
	HeaderType      = "typ"
	HeaderAlgorithm = "alg"
)

// DateClaims lists the claims carried as NumericDate.
var DateClaims = []string{ClaimIssuedAt, ClaimNotBefore, ClaimExpiresAt}

// RegisteredClaims lists the claims set through dedicated builder methods.
var RegisteredClaims = []string{ClaimID, ClaimIssuer, ClaimSubject, ClaimAudience, ClaimIssuedAt, ClaimNotBefore, ClaimExpiresAt}

// Token is a parsed or freshly built JWS. It is immutable; accessors that
// return Fields return copies.
//
// Date claims are held as time.Time and the audience as []string regardless
// of their wire representation.
type Token struct {
	headers   *Fields
	claims    *Fields
	signature []byte

	encodedHeaders   string
	encodedClaims    string
	encodedSignature string
}

// Headers returns a copy of the header fields.
func (t *Token) Headers() *Fields { return t.headers.Clone() }

// Claims returns a copy of the claims.
func (t *Token) Claims() *Fields { return t.claims.Clone() }

// Header returns a copy of a single header value.
func (t *Token) Header(name string) (any, bool) {
	v, ok := t.headers.Get(name)
	return copyValue(v), ok
}

// Claim returns a copy of a single claim value.
func (t *Token) Claim(name string) (any, bool) {
	v, ok := t.claims.Get(name)
	return copyValue(v), ok
}

// Signature returns a copy of the raw signature bytes.
func (t *Token) Signature() []byte { return append([]byte(nil), t.signature...) }

// Payload returns the signed part of the token: "header.claims".
func (t *Token) Payload() string { return t.encodedHeaders + "." + t.encodedClaims }

// String returns the compact serialization.
func (t *Token) String() string { return t.Payload() + "." + t.encodedSignature }

// Algorithm returns the "alg" header.
func (t *Token) Algorithm() string { return t.stringHeader(HeaderAlgorithm) }

// Type returns the "typ" header.
func (t *Token) Type() string { return t.stringHeader(HeaderType) }

func (t *Token) stringHeader(name string) string {
	v, _ := t.headers.Get(name)
	s, _ := v.(string)
	return s
}

func (t *Token) stringClaim(name string) string {
	v, _ := t.claims.Get(name)
	s, _ := v.(string)
	return s
}

func (t *Token) dateClaim(name string) (time.Time, bool) {
	v, ok := t.claims.Get(name)
	if !ok {
		return time.Time{}, false
	}
	d, ok := v.(time.Time)
	return d, ok
}

// Issuer returns the "iss" claim.
func (t *Token) Issuer() string { return t.stringClaim(ClaimIssuer) }

// Subject returns the "sub" claim.
func (t *Token) Subject() string { return t.stringClaim(ClaimSubject) }

// ID returns the "jti" claim.
func (t *Token) ID() string { return t.stringClaim(ClaimID) }

// Audience returns the "aud" claim.
func (t *Token) Audience() []string {
	v, _ := t.claims.Get(ClaimAudience)
	aud, _ := v.([]string)
	return slices.Clone(aud)
}

// ExpiresAt returns the "exp" claim.
func (t *Token) ExpiresAt() (time.Time, bool) { return t.dateClaim(ClaimExpiresAt) }

// IssuedAt returns the "iat" claim.
func (t *Token) IssuedAt() (time.Time, bool) { return t.dateClaim(ClaimIssuedAt) }

// NotBefore returns the "nbf" claim.
func (t *Token) NotBefore() (time.Time, bool) { return t.dateClaim(ClaimNotBefore) }

// IsPermittedFor reports whether audience is listed in "aud".
func (t *Token) IsPermittedFor(audience string) bool {
	return slices.Contains(t.Audience(), audience)
}

// IsIdentifiedBy reports whether "jti" equals id.
func (t *Token) IsIdentifiedBy(id string) bool {
	return t.claims.Has(ClaimID) && t.ID() == id
}

// IsRelatedTo reports whether "sub" equals subject.
func (t *Token) IsRelatedTo(subject string) bool {
	return t.claims.Has(ClaimSubject) && t.Subject() == subject
}

// HasBeenIssuedBy reports whether "iss" is one of issuers.
func (t *Token) HasBeenIssuedBy(issuers ...string) bool {
	return t.claims.Has(ClaimIssuer) && slices.Contains(issuers, t.Issuer())
}

// HasBeenIssuedBefore reports whether "iat" is not after now. A token
// without "iat" passes.
func (t *Token) HasBeenIssuedBefore(now time.Time) bool {
	iat, ok := t.IssuedAt()
	return !ok || !now.Before(iat)
}

// IsMinimumTimeBefore reports whether "nbf" is not after now. A token
// without "nbf" passes.
func (t *Token) IsMinimumTimeBefore(now time.Time) bool {
	nbf, ok := t.NotBefore()
	return !ok || !now.Before(nbf)
}

// IsExpired reports whether now is past "exp". A token without "exp" never
// expires.
func (t *Token) IsExpired(now time.Time) bool {
	exp, ok := t.ExpiresAt()
	return ok && now.After(exp)
}
