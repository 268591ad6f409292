package jwt

import (
	"net/http"

	apperrors "github.com/kbukum/jwtauth/errors"
)

// Sentinels for errors.Is. Every error returned by this package is an
// *errors.AppError whose code matches exactly one of these.
var (
	ErrConfiguration          = apperrors.New(apperrors.ErrCodeConfiguration, "configuration error", http.StatusInternalServerError)
	ErrKeyIO                  = apperrors.New(apperrors.ErrCodeKeyIO, "key material could not be read", http.StatusInternalServerError)
	ErrCannotDecodeContent    = apperrors.New(apperrors.ErrCodeCannotDecodeContent, "content could not be decoded", http.StatusBadRequest)
	ErrInvalidTokenStructure  = apperrors.New(apperrors.ErrCodeInvalidTokenStructure, "invalid token structure", http.StatusBadRequest)
	ErrUnsupportedHeaderFound = apperrors.New(apperrors.ErrCodeUnsupportedHeader, "unsupported header found", http.StatusBadRequest)
	ErrConstraintViolation    = apperrors.New(apperrors.ErrCodeConstraintViolation, "constraint violation", http.StatusUnauthorized)
	ErrRegisteredClaim        = apperrors.New(apperrors.ErrCodeInvalidInput, "registered claim given", http.StatusBadRequest)
)

// IsMalformed reports whether err means the raw token could not be parsed,
// as opposed to a parsed token failing validation.
func IsMalformed(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrCodeCannotDecodeContent) ||
		apperrors.HasCode(err, apperrors.ErrCodeInvalidTokenStructure) ||
		apperrors.HasCode(err, apperrors.ErrCodeUnsupportedHeader)
}

func registeredClaimGiven(name string) error {
	return apperrors.New(apperrors.ErrCodeInvalidInput,
		"builder: use the dedicated method to set the registered claim "+quote(name), http.StatusBadRequest).
		WithDetail("claim", name)
}

func quote(s string) string { return `"` + s + `"` }
