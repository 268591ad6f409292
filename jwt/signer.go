package jwt

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/pem"
	"sort"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/ssh"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// SignerID is the JWA algorithm identifier written to the "alg" header.
type SignerID string

const (
	HS256 SignerID = "HS256"
	HS384 SignerID = "HS384"
	HS512 SignerID = "HS512"
	ES256 SignerID = "ES256"
	ES384 SignerID = "ES384"
	ES512 SignerID = "ES512"
	RS256 SignerID = "RS256"
	RS384 SignerID = "RS384"
	RS512 SignerID = "RS512"
)

// Signer produces and checks signatures over the "header.claims" payload.
// Signatures are raw bytes; base64url encoding is the codec's job.
type Signer interface {
	ID() SignerID
	Sign(payload []byte, key *Key) ([]byte, error)
	Verify(signature, payload []byte, key *Key) error
}

type keyFamily int

const (
	familyHMAC keyFamily = iota
	familyRSA
	familyECDSA
)

// methodSigner adapts a golang-jwt signing method to Signer.
type methodSigner struct {
	id     SignerID
	method gojwt.SigningMethod
	family keyFamily
}

func (s *methodSigner) ID() SignerID { return s.id }

func (s *methodSigner) Sign(payload []byte, key *Key) ([]byte, error) {
	signKey, err := s.signingKey(key)
	if err != nil {
		return nil, err
	}
	sig, err := s.method.Sign(string(payload), signKey)
	if err != nil {
		return nil, apperrors.Configuration("%s: unable to sign with the given key", s.id).WithCause(err)
	}
	return sig, nil
}

func (s *methodSigner) Verify(signature, payload []byte, key *Key) error {
	verifyKey, err := s.verificationKey(key)
	if err != nil {
		return err
	}
	return s.method.Verify(string(payload), signature, verifyKey)
}

func (s *methodSigner) signingKey(key *Key) (any, error) {
	switch s.family {
	case familyRSA:
		return key.derive("rsa-private", func(material []byte) (any, error) {
			return parsePrivateKey[*rsa.PrivateKey](s.id, material, key.Passphrase(), gojwt.ParseRSAPrivateKeyFromPEM)
		})
	case familyECDSA:
		return key.derive("ecdsa-private", func(material []byte) (any, error) {
			return parsePrivateKey[*ecdsa.PrivateKey](s.id, material, key.Passphrase(), gojwt.ParseECPrivateKeyFromPEM)
		})
	default:
		return hmacKey(s.id, key)
	}
}

// verificationKey accepts a public key, a certificate or the private key.
func (s *methodSigner) verificationKey(key *Key) (any, error) {
	switch s.family {
	case familyRSA:
		return key.derive("rsa-public", func(material []byte) (any, error) {
			if pub, err := gojwt.ParseRSAPublicKeyFromPEM(material); err == nil {
				return pub, nil
			}
			priv, err := parsePrivateKey[*rsa.PrivateKey](s.id, material, key.Passphrase(), gojwt.ParseRSAPrivateKeyFromPEM)
			if err != nil {
				return nil, err
			}
			return &priv.PublicKey, nil
		})
	case familyECDSA:
		return key.derive("ecdsa-public", func(material []byte) (any, error) {
			if pub, err := gojwt.ParseECPublicKeyFromPEM(material); err == nil {
				return pub, nil
			}
			priv, err := parsePrivateKey[*ecdsa.PrivateKey](s.id, material, key.Passphrase(), gojwt.ParseECPrivateKeyFromPEM)
			if err != nil {
				return nil, err
			}
			return &priv.PublicKey, nil
		})
	default:
		return hmacKey(s.id, key)
	}
}

func hmacKey(id SignerID, key *Key) ([]byte, error) {
	material, err := key.Material()
	if err != nil {
		return nil, err
	}
	if len(material) == 0 {
		return nil, apperrors.Configuration("%s: key material cannot be empty", id)
	}
	return material, nil
}

// parsePrivateKey decodes a PEM private key. Encrypted keys are opened with
// the passphrase through x/crypto/ssh; unencrypted keys go through golang-jwt.
func parsePrivateKey[T any](id SignerID, material []byte, passphrase string, plain func([]byte) (T, error)) (T, error) {
	var zero T
	if passphrase != "" {
		raw, err := ssh.ParseRawPrivateKeyWithPassphrase(material, []byte(passphrase))
		if err == nil {
			if k, ok := raw.(T); ok {
				return k, nil
			}
			return zero, apperrors.Configuration("%s: key has type %T", id, raw).WithCause(gojwt.ErrInvalidKeyType)
		}
		if encryptedPEM(material) {
			return zero, apperrors.Configuration("%s: unable to decrypt private key", id).WithCause(err)
		}
	}
	k, err := plain(material)
	if err != nil {
		return zero, apperrors.Configuration("%s: unable to parse private key", id).WithCause(err)
	}
	return k, nil
}

func encryptedPEM(material []byte) bool {
	block, _ := pem.Decode(material)
	if block == nil {
		return false
	}
	return block.Type == "ENCRYPTED PRIVATE KEY" ||
		block.Type == "OPENSSH PRIVATE KEY" ||
		strings.Contains(block.Headers["Proc-Type"], "ENCRYPTED")
}

// DefaultSigners returns one signer per supported algorithm.
func DefaultSigners() []Signer {
	return []Signer{
		&methodSigner{id: HS256, method: gojwt.SigningMethodHS256, family: familyHMAC},
		&methodSigner{id: HS384, method: gojwt.SigningMethodHS384, family: familyHMAC},
		&methodSigner{id: HS512, method: gojwt.SigningMethodHS512, family: familyHMAC},
		&methodSigner{id: ES256, method: gojwt.SigningMethodES256, family: familyECDSA},
		&methodSigner{id: ES384, method: gojwt.SigningMethodES384, family: familyECDSA},
		&methodSigner{id: ES512, method: gojwt.SigningMethodES512, family: familyECDSA},
		&methodSigner{id: RS256, method: gojwt.SigningMethodRS256, family: familyRSA},
		&methodSigner{id: RS384, method: gojwt.SigningMethodRS384, family: familyRSA},
		&methodSigner{id: RS512, method: gojwt.SigningMethodRS512, family: familyRSA},
	}
}

// SignerRegistry maps algorithm identifiers to signers. It is read-only
// after construction.
type SignerRegistry struct {
	signers map[SignerID]Signer
}

// NewSignerRegistry registers the given signers, or DefaultSigners when none
// are given. Two signers claiming the same ID is a configuration error.
func NewSignerRegistry(signers ...Signer) (*SignerRegistry, error) {
	if len(signers) == 0 {
		signers = DefaultSigners()
	}
	r := &SignerRegistry{signers: make(map[SignerID]Signer, len(signers))}
	for _, s := range signers {
		if s == nil {
			return nil, apperrors.Configuration("signer registry: nil signer")
		}
		if _, dup := r.signers[s.ID()]; dup {
			return nil, apperrors.Configuration("signer registry: %s registered twice", s.ID())
		}
		r.signers[s.ID()] = s
	}
	return r, nil
}

var defaultRegistry, _ = NewSignerRegistry()

// DefaultSignerRegistry returns the registry of DefaultSigners.
func DefaultSignerRegistry() *SignerRegistry { return defaultRegistry }

// SignerFor returns the signer registered for id.
func (r *SignerRegistry) SignerFor(id SignerID) (Signer, error) {
	s, ok := r.signers[id]
	if !ok {
		return nil, apperrors.Configuration("no signer registered for %q", id)
	}
	return s, nil
}

// IDs returns the registered identifiers in sorted order.
func (r *SignerRegistry) IDs() []SignerID {
	ids := make([]SignerID, 0, len(r.signers))
	for id := range r.signers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
