package jwt

import (
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/kbukum/jwtauth/errors"
)

func TestSignerRegistry_Defaults(t *testing.T) {
	r, err := NewSignerRegistry()
	if err != nil {
		t.Fatalf("NewSignerRegistry: %v", err)
	}
	ids := r.IDs()
	if len(ids) != 9 {
		t.Fatalf("expected 9 signers, got %v", ids)
	}
	for _, id := range ids {
		s, err := r.SignerFor(id)
		if err != nil {
			t.Fatalf("SignerFor(%s): %v", id, err)
		}
		if s.ID() != id {
			t.Errorf("signer registered under %s reports %s", id, s.ID())
		}
	}
}

func TestSignerRegistry_RejectsDuplicates(t *testing.T) {
	signers := append(DefaultSigners(), DefaultSigners()[0])
	if _, err := NewSignerRegistry(signers...); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSignerRegistry_MissingSigner(t *testing.T) {
	r, err := NewSignerRegistry(DefaultSigners()[:3]...)
	if err != nil {
		t.Fatalf("NewSignerRegistry: %v", err)
	}
	if _, err := r.SignerFor(RS256); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSigners_SignAndVerify(t *testing.T) {
	rsaPriv, rsaPub, _ := rsaKeyPEM(t)
	ec256Priv, ec256Pub := ecKeyPEM(t, elliptic.P256())
	ec384Priv, ec384Pub := ecKeyPEM(t, elliptic.P384())
	ec521Priv, ec521Pub := ecKeyPEM(t, elliptic.P521())

	tests := []struct {
		id        SignerID
		signKey   *Key
		verifyKey *Key
	}{
		{HS256, PlainKey(testSecret), PlainKey(testSecret)},
		{HS384, PlainKey(testSecret), PlainKey(testSecret)},
		{HS512, PlainKey(testSecret), PlainKey(testSecret)},
		{RS256, PlainKey(string(rsaPriv)), PlainKey(string(rsaPub))},
		{RS384, PlainKey(string(rsaPriv)), PlainKey(string(rsaPriv))},
		{RS512, PlainKey(string(rsaPriv)), PlainKey(string(rsaPub))},
		{ES256, PlainKey(string(ec256Priv)), PlainKey(string(ec256Pub))},
		{ES384, PlainKey(string(ec384Priv)), PlainKey(string(ec384Pub))},
		{ES512, PlainKey(string(ec521Priv)), PlainKey(string(ec521Pub))},
	}

	payload := []byte("eyJhbGciOiJub25lIn0.eyJzdWIiOiIxMjMifQ")
	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			s := mustSigner(t, tt.id)
			sig, err := s.Sign(payload, tt.signKey)
			if err != nil {
				t.Fatalf("Sign: %v", err)
			}
			if err := s.Verify(sig, payload, tt.verifyKey); err != nil {
				t.Errorf("Verify: %v", err)
			}
			if err := s.Verify(sig, append(payload, 'x'), tt.verifyKey); err == nil {
				t.Error("expected verification of altered payload to fail")
			}
		})
	}
}

func TestSigners_WrongKeyFails(t *testing.T) {
	payload := []byte("header.claims")

	hs := mustSigner(t, HS256)
	sig, err := hs.Sign(payload, PlainKey(testSecret))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := hs.Verify(sig, payload, PlainKey("another-secret")); err == nil {
		t.Error("expected HMAC verification with another key to fail")
	}

	privA, _, _ := rsaKeyPEM(t)
	_, pubB, _ := rsaKeyPEM(t)
	rs := mustSigner(t, RS256)
	sig, err = rs.Sign(payload, PlainKey(string(privA)))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := rs.Verify(sig, payload, PlainKey(string(pubB))); err == nil {
		t.Error("expected RSA verification with another key to fail")
	}
}

func TestSigners_PassphraseProtectedKey(t *testing.T) {
	_, pub, key := rsaKeyPEM(t)
	//nolint:staticcheck // EncryptPEMBlock is deprecated
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), []byte("s3cret"), x509.PEMCipherAES256)
	if err != nil {
		t.Fatalf("EncryptPEMBlock: %v", err)
	}
	encrypted := pem.EncodeToMemory(block)

	s := mustSigner(t, RS256)
	signKey := MustResolveKey(KeyPlain, Literal(string(encrypted)), "s3cret")
	sig, err := s.Sign([]byte("a.b"), signKey)
	if err != nil {
		t.Fatalf("Sign with passphrase: %v", err)
	}
	if err := s.Verify(sig, []byte("a.b"), PlainKey(string(pub))); err != nil {
		t.Errorf("Verify: %v", err)
	}

	if _, err := s.Sign([]byte("a.b"), PlainKey(string(encrypted))); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error without passphrase, got %v", err)
	}
}

func TestSigners_WrongPassphrase(t *testing.T) {
	_, _, key := rsaKeyPEM(t)
	//nolint:staticcheck // EncryptPEMBlock is deprecated
	block, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", x509.MarshalPKCS1PrivateKey(key), []byte("s3cret"), x509.PEMCipherAES256)
	if err != nil {
		t.Fatalf("EncryptPEMBlock: %v", err)
	}
	encrypted := string(pem.EncodeToMemory(block))

	_, err = mustSigner(t, RS256).Sign([]byte("a.b"), MustResolveKey(KeyPlain, Literal(encrypted), "wrong"))
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Cause == nil {
		t.Fatalf("expected the decryption failure as cause, got %v", err)
	}
	if !strings.Contains(appErr.Message, "decrypt") {
		t.Errorf("message = %q, want a decryption failure", appErr.Message)
	}
}

func TestSigners_KeyErrors(t *testing.T) {
	tests := []struct {
		name string
		id   SignerID
		key  *Key
		want error
	}{
		{"rsa with hmac secret", RS256, PlainKey(testSecret), ErrConfiguration},
		{"ecdsa with hmac secret", ES256, PlainKey(testSecret), ErrConfiguration},
		{"hmac with empty file", HS256, MustResolveKey(KeyFile, Literal(""), ""), ErrConfiguration},
		{"missing key file", HS256, MustResolveKey(KeyFile, Literal("/nonexistent/key"), ""), ErrKeyIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mustSigner(t, tt.id).Sign([]byte("a.b"), tt.key)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
