package api

import (
	"time"

	"github.com/labstack/echo/v4"
)

// APIResponse is the standard response format for all endpoints
type APIResponse struct {
	Data  interface{}    `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
	Meta  ResponseMeta   `json:"meta"`
}

// ErrorResponse contains error details
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
}

// Error codes shared by both services
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeInternal        = "INTERNAL"
)

// Success writes a successful APIResponse
func Success(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, &APIResponse{
		Data: data,
		Meta: ResponseMeta{Timestamp: time.Now().UTC()},
	})
}

// Failure writes an error APIResponse
func Failure(c echo.Context, status int, code, message string) error {
	return c.JSON(status, &APIResponse{
		Error: &ErrorResponse{Code: code, Message: message},
		Meta:  ResponseMeta{Timestamp: time.Now().UTC()},
	})
}
