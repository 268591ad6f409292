package jwt

import (
	"errors"
	"testing"
)

func TestResolveKey_Empty(t *testing.T) {
	tests := []struct {
		name       string
		contents   KeyContents
		passphrase string
	}{
		{"no contents", Literal(""), ""},
		{"literal ignored", Literal("super-secret"), "pass"},
		{"supplier ignored", Supplied(func() any { return "other" }), "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ResolveKey(KeyEmpty, tt.contents, tt.passphrase)
			if err != nil {
				t.Fatalf("ResolveKey: %v", err)
			}
			material, err := k.Material()
			if err != nil {
				t.Fatalf("Material: %v", err)
			}
			if string(material) != EmptyKeyMaterial {
				t.Errorf("expected %q, got %q", EmptyKeyMaterial, material)
			}
			if k.Passphrase() != "" {
				t.Errorf("expected passphrase to be ignored, got %q", k.Passphrase())
			}
		})
	}
}

func TestResolveKey_Defaults(t *testing.T) {
	tests := []struct {
		kind KeyKind
		want string
	}{
		{KeyPlain, DefaultPlainKey},
		{KeyBase64, DefaultBase64Key},
		{KeyFile, DefaultKeyFile},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			k, err := ResolveKey(tt.kind, Literal(""), "")
			if err != nil {
				t.Fatalf("ResolveKey: %v", err)
			}
			if k.Contents() != tt.want {
				t.Errorf("expected contents %q, got %q", tt.want, k.Contents())
			}
		})
	}
}

func TestResolveKey_Base64(t *testing.T) {
	k, err := ResolveKey(KeyBase64, Literal("ZGVmYXVsdA=="), "")
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	material, err := k.Material()
	if err != nil {
		t.Fatalf("Material: %v", err)
	}
	if string(material) != "default" {
		t.Errorf("expected %q, got %q", "default", material)
	}
}

func TestResolveKey_InvalidBase64FailsOnFirstUse(t *testing.T) {
	k, err := ResolveKey(KeyBase64, Literal("not//base64!!"), "")
	if err != nil {
		t.Fatalf("resolution must not decode, got %v", err)
	}
	if _, err := k.Material(); !errors.Is(err, ErrCannotDecodeContent) {
		t.Errorf("expected CannotDecodeContent, got %v", err)
	}
}

func TestResolveKey_File(t *testing.T) {
	path := writeTempFile(t, "hmac.key", []byte(testSecret))

	k, err := ResolveKey(KeyFile, Literal(path), "")
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	material, err := k.Material()
	if err != nil {
		t.Fatalf("Material: %v", err)
	}
	if string(material) != testSecret {
		t.Errorf("unexpected material %q", material)
	}
}

func TestResolveKey_MissingFileFailsOnFirstUse(t *testing.T) {
	k, err := ResolveKey(KeyFile, Literal("/nonexistent/jwtauth/key.pem"), "")
	if err != nil {
		t.Fatalf("resolution must not read the file, got %v", err)
	}
	_, err = k.Material()
	if !errors.Is(err, ErrKeyIO) {
		t.Fatalf("expected KeyIO error, got %v", err)
	}
	if _, again := k.Material(); again != err {
		t.Error("expected the failure to be cached")
	}
}

func TestResolveKey_SupplierCalledOnce(t *testing.T) {
	calls := 0
	k, err := ResolveKey(KeyPlain, Supplied(func() any {
		calls++
		return testSecret
	}), "")
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected supplier to be called once, got %d", calls)
	}
	for i := 0; i < 3; i++ {
		if _, err := k.Material(); err != nil {
			t.Fatalf("Material: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected no further supplier calls, got %d", calls)
	}
}

func TestResolveKey_NonStringSupplierFallsBack(t *testing.T) {
	k, err := ResolveKey(KeyPlain, Supplied(func() any { return 42 }), "")
	if err != nil {
		t.Fatalf("ResolveKey: %v", err)
	}
	if k.Contents() != DefaultPlainKey {
		t.Errorf("expected non-string result to resolve to empty and fall back, got %q", k.Contents())
	}
}

func TestResolveKey_UnknownKind(t *testing.T) {
	_, err := ResolveKey(KeyKind("vault"), Literal("x"), "")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
