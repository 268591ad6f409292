package jwt

import (
	"encoding/base64"
	"os"
	"sync"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// KeyKind selects how key contents are interpreted.
type KeyKind string

const (
	// KeyEmpty yields a fixed placeholder key. It is not a secret and must
	// never sign production tokens.
	KeyEmpty  KeyKind = "empty"
	KeyPlain  KeyKind = "plain"
	KeyBase64 KeyKind = "base64"
	KeyFile   KeyKind = "file"
)

// Fallback contents used when a key is configured without any.
const (
	EmptyKeyMaterial = "empty"
	DefaultPlainKey  = "default"
	DefaultBase64Key = "ZGVmYXVsdA=="
	DefaultKeyFile   = "/dev/null"
)

// KeyContents is either a literal string or a supplier evaluated when the
// key is resolved.
type KeyContents struct {
	literal  string
	supplier func() any
}

// Literal wraps fixed key contents.
func Literal(contents string) KeyContents {
	return KeyContents{literal: contents}
}

// Supplied defers key contents to fn. fn is called once per resolution and a
// non-string result resolves to "".
func Supplied(fn func() any) KeyContents {
	return KeyContents{supplier: fn}
}

func (c KeyContents) resolve() string {
	if c.supplier == nil {
		return c.literal
	}
	s, _ := c.supplier().(string)
	return s
}

// Key is resolved signer key material. Base64 decoding and file reads happen
// on the first call to Material and the outcome, success or failure, is
// cached for the lifetime of the Key.
type Key struct {
	kind       KeyKind
	contents   string
	passphrase string

	once     sync.Once
	material []byte
	err      error

	parsed sync.Map
}

// ResolveKey builds a Key from its kind, contents and passphrase.
func ResolveKey(kind KeyKind, contents KeyContents, passphrase string) (*Key, error) {
	switch kind {
	case KeyEmpty:
		return &Key{kind: kind, contents: EmptyKeyMaterial}, nil
	case KeyPlain:
		return &Key{kind: kind, contents: orDefault(contents.resolve(), DefaultPlainKey), passphrase: passphrase}, nil
	case KeyBase64:
		return &Key{kind: kind, contents: orDefault(contents.resolve(), DefaultBase64Key), passphrase: passphrase}, nil
	case KeyFile:
		return &Key{kind: kind, contents: orDefault(contents.resolve(), DefaultKeyFile), passphrase: passphrase}, nil
	default:
		return nil, apperrors.Configuration("unknown key kind %q", kind)
	}
}

// MustResolveKey is like ResolveKey but panics on an unknown kind.
func MustResolveKey(kind KeyKind, contents KeyContents, passphrase string) *Key {
	k, err := ResolveKey(kind, contents, passphrase)
	if err != nil {
		panic(err)
	}
	return k
}

// PlainKey is shorthand for a plain-text key without passphrase.
func PlainKey(contents string) *Key {
	return MustResolveKey(KeyPlain, Literal(contents), "")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Kind returns the key kind.
func (k *Key) Kind() KeyKind { return k.kind }

// Contents returns the configured contents: the key text, its base64 form or
// the file path, depending on the kind.
func (k *Key) Contents() string { return k.contents }

// Passphrase returns the passphrase protecting PEM encoded private keys.
func (k *Key) Passphrase() string { return k.passphrase }

// Material returns the raw key bytes.
func (k *Key) Material() ([]byte, error) {
	k.once.Do(func() {
		switch k.kind {
		case KeyBase64:
			k.material, k.err = base64.StdEncoding.Strict().DecodeString(k.contents)
			if k.err != nil {
				k.err = apperrors.CannotDecodeContent("error while decoding key from base64", k.err)
			}
		case KeyFile:
			k.material, k.err = os.ReadFile(k.contents)
			if k.err != nil {
				k.err = apperrors.KeyIO(k.contents, k.err)
			}
		default:
			k.material = []byte(k.contents)
		}
	})
	return k.material, k.err
}

// derive memoizes a value computed from the key material, such as a parsed
// PEM key. Concurrent first calls may compute twice; one result wins.
func (k *Key) derive(name string, build func(material []byte) (any, error)) (any, error) {
	if v, ok := k.parsed.Load(name); ok {
		return v, nil
	}
	material, err := k.Material()
	if err != nil {
		return nil, err
	}
	v, err := build(material)
	if err != nil {
		return nil, err
	}
	actual, _ := k.parsed.LoadOrStore(name, v)
	return actual, nil
}
