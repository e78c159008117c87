package handler

import "github.com/voyago/backend/internal/interfaces/http/dto"

// APIResponse is the typed response wrapper referenced from swagger
// annotations. The runtime envelope is dto.Response; this generic
// mirror exists so each endpoint's docs can name its data type.
// @Description Standard API response wrapper with typed data field
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}

// ErrorResponse documents the error envelope.
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// SuccessResponse documents a bare success acknowledgement.
// @Description Simple success response without data
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// CountData documents endpoints that return a single count, such as
// the expiry sweep's swept-transaction total.
// @Description Count data
type CountData struct {
	Count int64 `json:"count"`
}
