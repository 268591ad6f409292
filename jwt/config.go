package jwt

import (
	"fmt"
	"time"

	"github.com/kbukum/jwtauth/validation"
)

// Config configures the JWT component.
//
//	jwt:
//	  signer: RS256
//	  key_kind: file
//	  key_contents: /etc/jwtauth/private.pem
//	  verify_key_kind: file
//	  verify_key_contents: /etc/jwtauth/public.pem
//	  ttl: 15m
//	  validation:
//	    signature: true
//	    time: strict
//	    leeway: 5s
//	    issuers: [https://auth.example.com]
type Config struct {
	Signer        string `yaml:"signer" mapstructure:"signer" validate:"required,oneof=HS256 HS384 HS512 ES256 ES384 ES512 RS256 RS384 RS512"`
	KeyKind       string `yaml:"key_kind" mapstructure:"key_kind" validate:"required,oneof=empty plain base64 file"`
	KeyContents   string `yaml:"key_contents" mapstructure:"key_contents"`
	KeyPassphrase string `yaml:"key_passphrase" mapstructure:"key_passphrase"`

	// VerifyKey* select a separate verification key, typically the public
	// half of an asymmetric pair. When VerifyKeyKind is empty the signing key
	// is used for verification too.
	VerifyKeyKind       string `yaml:"verify_key_kind" mapstructure:"verify_key_kind" validate:"omitempty,oneof=empty plain base64 file"`
	VerifyKeyContents   string `yaml:"verify_key_contents" mapstructure:"verify_key_contents"`
	VerifyKeyPassphrase string `yaml:"verify_key_passphrase" mapstructure:"verify_key_passphrase"`

	// Issuer and Audience are applied by Issue.
	Issuer   string        `yaml:"issuer" mapstructure:"issuer"`
	Audience []string      `yaml:"audience" mapstructure:"audience"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl" validate:"gte=0"`

	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
}

// ValidationConfig declares the constraints LoadToken applies. Leaving it
// empty means no constraints at all.
type ValidationConfig struct {
	Signature      bool          `yaml:"signature" mapstructure:"signature"`
	Time           string        `yaml:"time" mapstructure:"time" validate:"omitempty,oneof=strict loose"`
	Leeway         time.Duration `yaml:"leeway" mapstructure:"leeway" validate:"gte=0"`
	Issuers        []string      `yaml:"issuers" mapstructure:"issuers"`
	Audience       string        `yaml:"audience" mapstructure:"audience"`
	RequiredClaims []string      `yaml:"required_claims" mapstructure:"required_claims"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Signer == "" {
		c.Signer = string(HS256)
	}
	if c.KeyKind == "" {
		c.KeyKind = string(KeyEmpty)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("jwt: %w", err)
	}
	return nil
}

// Constraints builds the declared constraints in a fixed order: signature,
// time, issuer, audience, then required claims.
func (c ValidationConfig) Constraints(signer Signer, verifyKey *Key, clock Clock) []Constraint {
	var cs []Constraint
	if c.Signature {
		cs = append(cs, SignedWith(signer, verifyKey))
	}
	switch c.Time {
	case "strict":
		cs = append(cs, StrictValidAt(clock, c.Leeway))
	case "loose":
		cs = append(cs, LooseValidAt(clock, c.Leeway))
	}
	if len(c.Issuers) > 0 {
		cs = append(cs, IssuedBy(c.Issuers...))
	}
	if c.Audience != "" {
		cs = append(cs, PermittedFor(c.Audience))
	}
	for _, name := range c.RequiredClaims {
		cs = append(cs, HasClaim(name))
	}
	return cs
}
