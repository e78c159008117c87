package dto

import "net/http"

// Error codes returned in API error responses. The format is
// ERR_<CATEGORY>_<DESCRIPTION>; GetHTTPStatus maps each one to a status.

// General codes for failures with no better classification.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation codes for request payloads that fail field validation.
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Authentication and authorization codes.
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource codes.
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule codes.
const (
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeBusinessRule        = "ERR_BUSINESS_RULE"
	ErrCodeInsufficientBalance = "ERR_INSUFFICIENT_BALANCE"
)

// Ledger codes. These mirror the domain errors raised by the wallet and
// redemption operations.
const (
	// ErrCodeInvalidAmount is used for non-positive or malformed amounts.
	ErrCodeInvalidAmount = "ERR_INVALID_AMOUNT"
	// ErrCodeInsufficientFunds is used when cash plus credit cannot cover a debit.
	ErrCodeInsufficientFunds = "ERR_INSUFFICIENT_FUNDS"
	// ErrCodeAmountExceedsDebt is used when a repayment exceeds outstanding debt.
	ErrCodeAmountExceedsDebt = "ERR_AMOUNT_EXCEEDS_DEBT"
	// ErrCodeCreditLimitExceeded is used when a credit draw exceeds the limit.
	ErrCodeCreditLimitExceeded = "ERR_CREDIT_LIMIT_EXCEEDED"
	// ErrCodeNotCancellable is used when a redemption is past cancellation.
	ErrCodeNotCancellable = "ERR_NOT_CANCELLABLE"
	// ErrCodeIdempotencyKeyRequired is used when no idempotency key can be derived.
	ErrCodeIdempotencyKeyRequired = "ERR_IDEMPOTENCY_KEY_REQUIRED"
	// ErrCodeIdempotencyConflict is used when a key is replayed with a different payload.
	ErrCodeIdempotencyConflict = "ERR_IDEMPOTENCY_CONFLICT"
	// ErrCodeStorageUnavailable is used when the backing store is unreachable.
	ErrCodeStorageUnavailable = "ERR_STORAGE_UNAVAILABLE"
)

// Input codes for requests that cannot be parsed at all.
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
)

// Rate limiting codes.
const (
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps every error code to its HTTP status. Business
// rule violations use 422 so clients can distinguish "your request was
// well formed but the ledger refused it" from parse errors.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:        http.StatusUnprocessableEntity,
	ErrCodeInsufficientBalance: http.StatusUnprocessableEntity,
	ErrCodeInvalidAmount:       http.StatusUnprocessableEntity,
	ErrCodeInsufficientFunds:   http.StatusUnprocessableEntity,
	ErrCodeAmountExceedsDebt:   http.StatusUnprocessableEntity,
	ErrCodeCreditLimitExceeded: http.StatusUnprocessableEntity,

	// Idempotency and lifecycle conflicts are 409 so a retrying client
	// knows the original request already landed.
	ErrCodeNotCancellable:      http.StatusConflict,
	ErrCodeIdempotencyConflict: http.StatusConflict,

	ErrCodeIdempotencyKeyRequired: http.StatusBadRequest,

	ErrCodeStorageUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for an error code. Unrecognized
// codes fall back to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping translates the bare codes the domain layer raises
// into the ERR_ prefixed API codes.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"INSUFFICIENT_BALANCE": ErrCodeInsufficientBalance,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	"INVALID_AMOUNT":                     ErrCodeInvalidAmount,
	"INSUFFICIENT_FUNDS":                 ErrCodeInsufficientFunds,
	"AMOUNT_EXCEEDS_DEBT":                ErrCodeAmountExceedsDebt,
	"CREDIT_LIMIT_EXCEEDED":              ErrCodeCreditLimitExceeded,
	"NOT_CANCELLABLE":                    ErrCodeNotCancellable,
	"IDEMPOTENCY_KEY_REQUIRED":           ErrCodeIdempotencyKeyRequired,
	"DUPLICATE_IDEMPOTENCY_KEY_CONFLICT": ErrCodeIdempotencyConflict,
	"ACCOUNT_NOT_FOUND":                  ErrCodeNotFound,
	"REDEMPTION_NOT_FOUND":               ErrCodeNotFound,
	"STORAGE_UNAVAILABLE":                ErrCodeStorageUnavailable,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format, and unknown codes, pass through.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := LegacyErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
