package jwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "a-string-secret-at-least-256-bits-long"

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func rsaKeyPEM(t *testing.T) (privatePEM, publicPEM []byte, key *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal rsa public key: %v", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privatePEM, publicPEM, key
}

func ecKeyPEM(t *testing.T, curve elliptic.Curve) (privatePEM, publicPEM []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generate ec key: %v", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal ec private key: %v", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal ec public key: %v", err)
	}
	privatePEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	publicPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pub})
	return privatePEM, publicPEM
}

func mustSigner(t *testing.T, id SignerID) Signer {
	t.Helper()
	s, err := DefaultSignerRegistry().SignerFor(id)
	if err != nil {
		t.Fatalf("signer %s: %v", id, err)
	}
	return s
}

func signedToken(t *testing.T, b *Builder, id SignerID, key *Key) *Token {
	t.Helper()
	tok, err := b.GetToken(mustSigner(t, id), key)
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	return tok
}

func newBuilder() *Builder {
	return NewBuilder(JoseEncoder{}, DefaultClaimsFormatter())
}
