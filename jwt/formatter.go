package jwt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ClaimsFormatter rewrites claims into their wire representation. Formatters
// run on encode only and must not modify their input.
type ClaimsFormatter interface {
	FormatClaims(claims *Fields) *Fields
}

// ClaimsFormatterFunc adapts a function to ClaimsFormatter.
type ClaimsFormatterFunc func(claims *Fields) *Fields

func (f ClaimsFormatterFunc) FormatClaims(claims *Fields) *Fields { return f(claims) }

// UnifyAudience writes a single-element audience as a plain string.
type UnifyAudience struct{}

func (UnifyAudience) FormatClaims(claims *Fields) *Fields {
	aud, ok := claims.Get(ClaimAudience)
	if !ok {
		return claims
	}
	list, ok := aud.([]string)
	if !ok || len(list) != 1 {
		return claims
	}
	out := claims.Clone()
	out.Set(ClaimAudience, list[0])
	return out
}

// MicrosecondBasedDateConversion writes date claims as numeric seconds,
// keeping a six digit fraction when the time has sub-second microseconds.
type MicrosecondBasedDateConversion struct{}

func (MicrosecondBasedDateConversion) FormatClaims(claims *Fields) *Fields {
	return convertDates(claims, func(t time.Time) json.Number {
		us := t.UnixMicro()
		if us%1e6 == 0 {
			return json.Number(strconv.FormatInt(us/1e6, 10))
		}
		sign := ""
		if us < 0 {
			sign, us = "-", -us
		}
		return json.Number(fmt.Sprintf("%s%d.%06d", sign, us/1e6, us%1e6))
	})
}

// UnixTimestampDates writes date claims as integer seconds, dropping any
// sub-second part.
type UnixTimestampDates struct{}

func (UnixTimestampDates) FormatClaims(claims *Fields) *Fields {
	return convertDates(claims, func(t time.Time) json.Number {
		return json.Number(strconv.FormatInt(t.Unix(), 10))
	})
}

func convertDates(claims *Fields, format func(time.Time) json.Number) *Fields {
	out := claims
	for _, name := range DateClaims {
		v, ok := claims.Get(name)
		if !ok {
			continue
		}
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		if out == claims {
			out = claims.Clone()
		}
		out.Set(name, format(t))
	}
	return out
}

// ChainedFormatter applies formatters in order.
type ChainedFormatter []ClaimsFormatter

func (c ChainedFormatter) FormatClaims(claims *Fields) *Fields {
	for _, f := range c {
		claims = f.FormatClaims(claims)
	}
	return claims
}

// DefaultClaimsFormatter unifies the audience and keeps microsecond dates.
func DefaultClaimsFormatter() ClaimsFormatter {
	return ChainedFormatter{UnifyAudience{}, MicrosecondBasedDateConversion{}}
}

// UnixTimestampFormatter unifies the audience and truncates dates to seconds.
func UnixTimestampFormatter() ClaimsFormatter {
	return ChainedFormatter{UnifyAudience{}, UnixTimestampDates{}}
}
