package jwt

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// Parser turns a compact JWS string into a Token. It checks structure and
// encoding only; signatures and claims are left to constraints.
type Parser struct {
	decoder Decoder
}

// NewParser returns a Parser. A nil decoder means JoseEncoder.
func NewParser(decoder Decoder) *Parser {
	if decoder == nil {
		decoder = JoseEncoder{}
	}
	return &Parser{decoder: decoder}
}

// Parse parses raw without verifying it.
func (p *Parser) Parse(raw string) (*Token, error) {
	if raw == "" {
		return nil, apperrors.InvalidTokenStructure("JWT string cannot be empty")
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, apperrors.InvalidTokenStructure("the JWT string must have two dots")
	}

	headers, err := p.parseHeaders(parts[0])
	if err != nil {
		return nil, err
	}
	claims, err := p.parseClaims(parts[1])
	if err != nil {
		return nil, err
	}
	signature, err := p.decoder.Base64URLDecode(parts[2])
	if err != nil {
		return nil, err
	}

	return &Token{
		headers:          headers,
		claims:           claims,
		signature:        signature,
		encodedHeaders:   parts[0],
		encodedClaims:    parts[1],
		encodedSignature: parts[2],
	}, nil
}

func (p *Parser) decodeSegment(segment string) (*Fields, error) {
	data, err := p.decoder.Base64URLDecode(segment)
	if err != nil {
		return nil, err
	}
	return p.decoder.JSONDecode(data)
}

func (p *Parser) parseHeaders(segment string) (*Fields, error) {
	headers, err := p.decodeSegment(segment)
	if err != nil {
		return nil, err
	}

	if headers.Has("enc") {
		return nil, apperrors.UnsupportedHeader("enc")
	}
	if crit, ok := headers.Get("crit"); ok {
		if list, isList := crit.([]any); !isList || len(list) > 0 {
			return nil, apperrors.UnsupportedHeader("crit")
		}
	}
	if b64, ok := headers.Get("b64"); ok && b64 != true {
		return nil, apperrors.UnsupportedHeader("b64")
	}
	if !headers.Has(HeaderType) {
		headers.Set(HeaderType, "JWT")
	}
	return headers, nil
}

func (p *Parser) parseClaims(segment string) (*Fields, error) {
	claims, err := p.decodeSegment(segment)
	if err != nil {
		return nil, err
	}

	if aud, ok := claims.Get(ClaimAudience); ok {
		list, err := parseAudience(aud)
		if err != nil {
			return nil, err
		}
		claims.Set(ClaimAudience, list)
	}

	for _, name := range DateClaims {
		v, ok := claims.Get(name)
		if !ok {
			continue
		}
		t, err := parseNumericDate(v)
		if err != nil {
			return nil, apperrors.InvalidTokenStructure("value is not in the allowed date format: "+name).
				WithDetail("claim", name).
				WithCause(err)
		}
		claims.Set(name, t)
	}
	return claims, nil
}

func parseAudience(v any) ([]string, error) {
	switch aud := v.(type) {
	case string:
		return []string{aud}, nil
	case []any:
		list := make([]string, 0, len(aud))
		for _, item := range aud {
			s, ok := item.(string)
			if !ok {
				return nil, apperrors.InvalidTokenStructure("aud must be a string or an array of strings")
			}
			list = append(list, s)
		}
		return list, nil
	default:
		return nil, apperrors.InvalidTokenStructure("aud must be a string or an array of strings")
	}
}

// parseNumericDate accepts seconds since the epoch with an optional
// fraction, as a JSON number or numeric string. The fraction is kept to the
// microsecond.
func parseNumericDate(v any) (time.Time, error) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = n
	default:
		return time.Time{}, strconv.ErrSyntax
	}

	intPart, frac, hasFrac := strings.Cut(s, ".")
	if strings.ContainsAny(s, "eE") || intPart == "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return time.Time{}, strconv.ErrSyntax
		}
		sec, fr := math.Modf(f)
		return time.Unix(int64(sec), int64(math.Round(fr*1e6))*int64(time.Microsecond)), nil
	}

	sec, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	if !hasFrac {
		return time.Unix(sec, 0), nil
	}
	if frac == "" || strings.Trim(frac, "0123456789") != "" {
		return time.Time{}, strconv.ErrSyntax
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	micros, _ := strconv.ParseInt(frac+strings.Repeat("0", 6-len(frac)), 10, 64)
	if strings.HasPrefix(intPart, "-") {
		micros = -micros
	}
	return time.Unix(sec, micros*int64(time.Microsecond)), nil
}
