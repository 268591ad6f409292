package jwt

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// Encoder turns headers and claims into token segments.
type Encoder interface {
	JSONEncode(fields *Fields) ([]byte, error)
	Base64URLEncode(data []byte) string
}

// Decoder is the inverse of Encoder.
type Decoder interface {
	JSONDecode(data []byte) (*Fields, error)
	Base64URLDecode(segment string) ([]byte, error)
}

// JoseEncoder implements Encoder and Decoder for the JWS compact
// serialization: unpadded base64url segments over JSON objects. Decoding is
// strict about padding and trailing bits, and numbers are kept as
// json.Number so no precision is lost.
type JoseEncoder struct{}

var (
	_ Encoder = JoseEncoder{}
	_ Decoder = JoseEncoder{}

	segmentParser = gojwt.NewParser(gojwt.WithStrictDecoding())
	segmentToken  = &gojwt.Token{}
)

// JSONEncode encodes fields as a JSON object.
func (JoseEncoder) JSONEncode(fields *Fields) ([]byte, error) {
	data, err := fields.MarshalJSON()
	if err != nil {
		return nil, apperrors.CannotDecodeContent("error while encoding to JSON", err)
	}
	return data, nil
}

// Base64URLEncode encodes data without padding.
func (JoseEncoder) Base64URLEncode(data []byte) string {
	return segmentToken.EncodeSegment(data)
}

// Base64URLDecode decodes an unpadded base64url segment.
func (JoseEncoder) Base64URLDecode(segment string) ([]byte, error) {
	data, err := segmentParser.DecodeSegment(segment)
	if err != nil {
		return nil, apperrors.CannotDecodeContent("error while decoding from base64url", err)
	}
	return data, nil
}

// JSONDecode decodes a JSON object preserving member order. Invalid JSON is
// CannotDecodeContent; valid JSON that is not an object is InvalidTokenStructure.
func (JoseEncoder) JSONDecode(data []byte) (*Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, apperrors.CannotDecodeContent("error while decoding from JSON", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, apperrors.InvalidTokenStructure("segment must be a JSON object")
	}

	fields := NewFields()
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, apperrors.CannotDecodeContent("error while decoding from JSON", err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, apperrors.CannotDecodeContent("error while decoding from JSON", errors.New("object key is not a string"))
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, apperrors.CannotDecodeContent("error while decoding from JSON", err)
		}
		fields.Set(name, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, apperrors.CannotDecodeContent("error while decoding from JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, apperrors.CannotDecodeContent("error while decoding from JSON", errors.New("unexpected data after JSON object"))
	}
	return fields, nil
}
