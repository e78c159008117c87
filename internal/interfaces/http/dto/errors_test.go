package dto

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allErrorCodes enumerates every code the API can return, used to keep the
// status map and the format convention in sync with the const blocks.
var allErrorCodes = []string{
	ErrCodeUnknown,
	ErrCodeInternal,
	ErrCodeValidation,
	ErrCodeValidationRequired,
	ErrCodeValidationFormat,
	ErrCodeValidationRange,
	ErrCodeValidationLength,
	ErrCodeUnauthorized,
	ErrCodeForbidden,
	ErrCodeTokenExpired,
	ErrCodeTokenInvalid,
	ErrCodeNotFound,
	ErrCodeAlreadyExists,
	ErrCodeConflict,
	ErrCodeConcurrencyConflict,
	ErrCodeInvalidState,
	ErrCodeBusinessRule,
	ErrCodeInsufficientBalance,
	ErrCodeInvalidAmount,
	ErrCodeInsufficientFunds,
	ErrCodeAmountExceedsDebt,
	ErrCodeCreditLimitExceeded,
	ErrCodeNotCancellable,
	ErrCodeIdempotencyKeyRequired,
	ErrCodeIdempotencyConflict,
	ErrCodeStorageUnavailable,
	ErrCodeBadRequest,
	ErrCodeInvalidInput,
	ErrCodeInvalidJSON,
	ErrCodeRateLimited,
	ErrCodeTooManyRequests,
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeBusinessRule, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientBalance, http.StatusUnprocessableEntity},
		{ErrCodeInvalidAmount, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientFunds, http.StatusUnprocessableEntity},
		{ErrCodeAmountExceedsDebt, http.StatusUnprocessableEntity},
		{ErrCodeCreditLimitExceeded, http.StatusUnprocessableEntity},
		{ErrCodeNotCancellable, http.StatusConflict},
		{ErrCodeIdempotencyConflict, http.StatusConflict},
		{ErrCodeIdempotencyKeyRequired, http.StatusBadRequest},
		{ErrCodeStorageUnavailable, http.StatusServiceUnavailable},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}

	t.Run("unmapped code falls back to 500", func(t *testing.T) {
		assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("UNKNOWN_CODE"))
	})
}

func TestNormalizeErrorCode(t *testing.T) {
	t.Run("domain codes translate to API codes", func(t *testing.T) {
		tests := []struct {
			input    string
			expected string
		}{
			{"NOT_FOUND", ErrCodeNotFound},
			{"ALREADY_EXISTS", ErrCodeAlreadyExists},
			{"INVALID_INPUT", ErrCodeInvalidInput},
			{"INVALID_STATE", ErrCodeInvalidState},
			{"UNAUTHORIZED", ErrCodeUnauthorized},
			{"FORBIDDEN", ErrCodeForbidden},
			{"CONCURRENCY_CONFLICT", ErrCodeConcurrencyConflict},
			{"INSUFFICIENT_BALANCE", ErrCodeInsufficientBalance},
			{"VALIDATION_ERROR", ErrCodeValidation},
			{"BAD_REQUEST", ErrCodeBadRequest},
			{"INTERNAL_ERROR", ErrCodeInternal},
			{"INVALID_AMOUNT", ErrCodeInvalidAmount},
			{"INSUFFICIENT_FUNDS", ErrCodeInsufficientFunds},
			{"AMOUNT_EXCEEDS_DEBT", ErrCodeAmountExceedsDebt},
			{"CREDIT_LIMIT_EXCEEDED", ErrCodeCreditLimitExceeded},
			{"NOT_CANCELLABLE", ErrCodeNotCancellable},
			{"IDEMPOTENCY_KEY_REQUIRED", ErrCodeIdempotencyKeyRequired},
			{"DUPLICATE_IDEMPOTENCY_KEY_CONFLICT", ErrCodeIdempotencyConflict},
			{"ACCOUNT_NOT_FOUND", ErrCodeNotFound},
			{"REDEMPTION_NOT_FOUND", ErrCodeNotFound},
			{"STORAGE_UNAVAILABLE", ErrCodeStorageUnavailable},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.expected, NormalizeErrorCode(tt.input), tt.input)
		}
	})

	t.Run("API codes pass through", func(t *testing.T) {
		assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode(ErrCodeNotFound))
		assert.Equal(t, ErrCodeInsufficientFunds, NormalizeErrorCode(ErrCodeInsufficientFunds))
	})

	t.Run("unknown codes pass through", func(t *testing.T) {
		assert.Equal(t, "CUSTOM_ERROR", NormalizeErrorCode("CUSTOM_ERROR"))
	})
}

func TestErrorCodeConstants(t *testing.T) {
	// Every declared code must resolve to a real status.
	for _, code := range allErrorCodes {
		t.Run(code, func(t *testing.T) {
			status, ok := ErrorCodeHTTPStatus[code]
			assert.True(t, ok, "code %s missing from ErrorCodeHTTPStatus", code)
			assert.GreaterOrEqual(t, status, 400)
			assert.Less(t, status, 600)
		})
	}
}

func TestErrorCodeFormat(t *testing.T) {
	for _, code := range allErrorCodes {
		assert.Contains(t, code, "ERR_", "code %s breaks the ERR_ convention", code)
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse("ACCOUNT_NOT_FOUND", "Account not found")

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	// Domain codes normalize on the way out.
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Account not found", resp.Error.Message)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeInsufficientFunds, "Debit exceeds available funds", "req-ledger-456")

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInsufficientFunds, resp.Error.Code)
	assert.Equal(t, "Debit exceeds available funds", resp.Error.Message)
	assert.Equal(t, "req-ledger-456", resp.Error.RequestID)
	assert.NotZero(t, resp.Error.Timestamp)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be a positive decimal"},
		{Field: "idempotency_key", Message: "Required"},
	}

	resp := NewValidationErrorResponse("Validation failed", "req-789", details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "Validation failed", resp.Error.Message)
	assert.Equal(t, "req-789", resp.Error.RequestID)
	require.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
	assert.Equal(t, "Must be a positive decimal", resp.Error.Details[0].Message)
}

func TestNewErrorResponseWithHelp(t *testing.T) {
	help := "https://docs.example.com/errors/auth"
	resp := NewErrorResponseWithHelp(ErrCodeUnauthorized, "Not authenticated", "req-001", help)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnauthorized, resp.Error.Code)
	assert.Equal(t, "Not authenticated", resp.Error.Message)
	assert.Equal(t, help, resp.Error.Help)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Redemption not found", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded Response
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.False(t, decoded.Success)
	require.NotNil(t, decoded.Error)
	assert.Equal(t, ErrCodeNotFound, decoded.Error.Code)
	assert.Equal(t, "Redemption not found", decoded.Error.Message)
	assert.Equal(t, "req-test-123", decoded.Error.RequestID)
}

func TestErrorResponseTimestamp(t *testing.T) {
	before := time.Now()
	resp := NewErrorResponse(ErrCodeInternal, "Server error")
	after := time.Now()

	assert.False(t, resp.Error.Timestamp.Before(before))
	assert.False(t, resp.Error.Timestamp.After(after))
}

func TestNewSuccessResponse(t *testing.T) {
	resp := NewSuccessResponse(map[string]string{"holder_id": "h-1"})

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	assert.Nil(t, resp.Meta)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"txn-1", "txn-2"}, 100, 1, 10)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(100), resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 10, resp.Meta.TotalPages)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		page          int
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 1, 10, 10, 10},
		{101, 1, 10, 11, 10},
		{0, 1, 10, 0, 10},
		{9, 1, 10, 1, 10},
		{10, 1, 10, 1, 10},
		{11, 1, 10, 2, 10},
		// Zero or negative page size falls back to the default of 20.
		{100, 1, 0, 5, 20},
		{100, 1, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, tt.page, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
