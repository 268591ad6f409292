package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors
const (
	// ErrCodeConfiguration indicates a missing or invalid component binding.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	// ErrCodeKeyIO indicates key material could not be read from its source.
	ErrCodeKeyIO ErrorCode = "KEY_IO_ERROR"
)

// Token errors
const (
	// ErrCodeCannotDecodeContent indicates a segment is not valid base64url or JSON.
	ErrCodeCannotDecodeContent ErrorCode = "CANNOT_DECODE_CONTENT"
	// ErrCodeInvalidTokenStructure indicates the token does not have the expected shape.
	ErrCodeInvalidTokenStructure ErrorCode = "INVALID_TOKEN_STRUCTURE"
	// ErrCodeUnsupportedHeader indicates the header uses a feature that is not supported.
	ErrCodeUnsupportedHeader ErrorCode = "UNSUPPORTED_HEADER"
	// ErrCodeConstraintViolation indicates a well-formed token failed a constraint.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
)

// Authentication errors
const (
	// ErrCodeUnauthorized indicates the request is unauthorized.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidToken indicates the authentication token is invalid.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Generic errors
const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeKeyIO:              true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
