package jwt

import (
	"slices"
	"time"
)

// Builder accumulates headers and claims for a new token.
//
// Builder is immutable: every method returns a new Builder and leaves the
// receiver untouched, so a partially configured Builder can serve as a
// template for many tokens and can be shared between goroutines.
//
//	tok, err := jwt.NewBuilder(jwt.JoseEncoder{}, jwt.DefaultClaimsFormatter()).
//		IssuedBy("https://api.example.com").
//		RelatedTo("user-42").
//		ExpiresAt(now.Add(time.Hour)).
//		GetToken(signer, key)
type Builder struct {
	encoder   Encoder
	formatter ClaimsFormatter
	headers   *Fields
	claims    *Fields
	err       error
}

// NewBuilder returns an empty Builder. A nil formatter means
// DefaultClaimsFormatter.
func NewBuilder(encoder Encoder, formatter ClaimsFormatter) *Builder {
	if encoder == nil {
		encoder = JoseEncoder{}
	}
	if formatter == nil {
		formatter = DefaultClaimsFormatter()
	}
	headers := NewFields()
	headers.Set(HeaderType, "JWT")
	headers.Set(HeaderAlgorithm, nil)
	return &Builder{
		encoder:   encoder,
		formatter: formatter,
		headers:   headers,
		claims:    NewFields(),
	}
}

func (b *Builder) with(apply func(nb *Builder)) *Builder {
	nb := &Builder{
		encoder:   b.encoder,
		formatter: b.formatter,
		headers:   b.headers.Clone(),
		claims:    b.claims.Clone(),
		err:       b.err,
	}
	apply(nb)
	return nb
}

func (b *Builder) setClaim(name string, value any) *Builder {
	return b.with(func(nb *Builder) { nb.claims.Set(name, value) })
}

// PermittedFor appends audiences, skipping ones already present.
func (b *Builder) PermittedFor(audiences ...string) *Builder {
	return b.with(func(nb *Builder) {
		v, _ := nb.claims.Get(ClaimAudience)
		current, _ := v.([]string)
		merged := slices.Clone(current)
		for _, aud := range audiences {
			if !slices.Contains(merged, aud) {
				merged = append(merged, aud)
			}
		}
		nb.claims.Set(ClaimAudience, merged)
	})
}

// ExpiresAt sets "exp".
func (b *Builder) ExpiresAt(t time.Time) *Builder {
	return b.setClaim(ClaimExpiresAt, normalizeDate(t))
}

// IdentifiedBy sets "jti".
func (b *Builder) IdentifiedBy(id string) *Builder {
	return b.setClaim(ClaimID, id)
}

// IssuedAt sets "iat".
func (b *Builder) IssuedAt(t time.Time) *Builder {
	return b.setClaim(ClaimIssuedAt, normalizeDate(t))
}

// IssuedBy sets "iss".
func (b *Builder) IssuedBy(issuer string) *Builder {
	return b.setClaim(ClaimIssuer, issuer)
}

// CanOnlyBeUsedAfter sets "nbf".
func (b *Builder) CanOnlyBeUsedAfter(t time.Time) *Builder {
	return b.setClaim(ClaimNotBefore, normalizeDate(t))
}

// RelatedTo sets "sub".
func (b *Builder) RelatedTo(subject string) *Builder {
	return b.setClaim(ClaimSubject, subject)
}

// WithHeader sets a header. "alg" is always overwritten by GetToken.
func (b *Builder) WithHeader(name string, value any) *Builder {
	return b.with(func(nb *Builder) { nb.headers.Set(name, value) })
}

// WithClaim sets a private or public claim. Registered claims must go
// through their dedicated method; passing one here makes GetToken fail.
func (b *Builder) WithClaim(name string, value any) *Builder {
	if slices.Contains(RegisteredClaims, name) {
		return b.with(func(nb *Builder) {
			if nb.err == nil {
				nb.err = registeredClaimGiven(name)
			}
		})
	}
	return b.setClaim(name, value)
}

// Has reports whether a claim has been set.
func (b *Builder) Has(name string) bool { return b.claims.Has(name) }

// GetToken encodes and signs the accumulated state.
func (b *Builder) GetToken(signer Signer, key *Key) (*Token, error) {
	if b.err != nil {
		return nil, b.err
	}

	headers := b.headers.Clone()
	headers.Set(HeaderAlgorithm, string(signer.ID()))

	encodedHeaders, err := b.encode(headers)
	if err != nil {
		return nil, err
	}
	encodedClaims, err := b.encode(b.formatter.FormatClaims(b.claims.Clone()))
	if err != nil {
		return nil, err
	}

	signature, err := signer.Sign([]byte(encodedHeaders+"."+encodedClaims), key)
	if err != nil {
		return nil, err
	}

	return &Token{
		headers:          headers,
		claims:           b.claims.Clone(),
		signature:        signature,
		encodedHeaders:   encodedHeaders,
		encodedClaims:    encodedClaims,
		encodedSignature: b.encoder.Base64URLEncode(signature),
	}, nil
}

func (b *Builder) encode(fields *Fields) (string, error) {
	data, err := b.encoder.JSONEncode(fields)
	if err != nil {
		return "", err
	}
	return b.encoder.Base64URLEncode(data), nil
}

// normalizeDate drops the monotonic reading and anything below the
// microsecond, which is the finest precision the wire format carries.
func normalizeDate(t time.Time) time.Time {
	return t.Round(0).Truncate(time.Microsecond)
}
