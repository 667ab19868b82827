package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// CustomError represents a custom application error
type CustomError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// AsCustomError unwraps err into a CustomError if one is in the chain
func AsCustomError(err error) (*CustomError, bool) {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Common error constructors
func NewBadRequestError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

func NewInternalServerError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusInternalServerError,
		Message: message,
	}
}

func NewTimeoutError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusRequestTimeout,
		Message: message,
	}
}

func NewValidationError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: "Validation failed",
		Detail:  detail,
	}
}

func NewNotFoundError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusNotFound,
		Message: message,
	}
}

func NewConflictError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusConflict,
		Message: message,
	}
}

// NewConfigurationError is returned for run configurations rejected before any navigation
func NewConfigurationError(message string) *CustomError {
	return &CustomError{
		Code:    http.StatusBadRequest,
		Message: message,
	}
}

// NewRunInProgressError is returned when another process holds the run lock
func NewRunInProgressError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusConflict,
		Message: "A scrape run is already in progress",
		Detail:  detail,
	}
}

// Scraping specific errors
func NewScrapingError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Scraping failed",
		Detail:  detail,
	}
}

// NewNotJobPostingError returns an error when the URL doesn't point at a job posting
func NewNotJobPostingError(detail string) *CustomError {
	return &CustomError{
		Code:    http.StatusUnprocessableEntity,
		Message: "Content is not a job posting",
		Detail:  detail,
	}
}
