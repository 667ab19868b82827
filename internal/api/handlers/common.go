package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"letraz-harvester/internal/api/validation"
	"letraz-harvester/internal/background"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

var validate = validation.New()

// requestID returns the id assigned by the request validation middleware
func requestID(c echo.Context) string {
	if id, ok := c.Get("request_id").(string); ok && id != "" {
		return id
	}
	id := utils.GenerateRequestID()
	c.Set("request_id", id)
	return id
}

func errorJSON(c echo.Context, status int, code, message string) error {
	return c.JSON(status, models.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestID(c),
		Timestamp: time.Now(),
	})
}

// respondError maps domain errors onto HTTP statuses
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, background.ErrQueueFull), errors.Is(err, background.ErrNotRunning):
		return errorJSON(c, http.StatusServiceUnavailable, "unavailable", err.Error())
	}

	ce := toCustomError(err)
	return errorJSON(c, ce.Code, errorCode(ce.Code), ce.Error())
}

func toCustomError(err error) *utils.CustomError {
	if ce, ok := utils.AsCustomError(err); ok {
		return ce
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return utils.NewNotFoundError("Job not found")
	case errors.Is(err, store.ErrDuplicate):
		return utils.NewConflictError(err.Error())
	case errors.Is(err, background.ErrTaskNotFound):
		return utils.NewNotFoundError("Process not found")
	}
	return utils.NewInternalServerError(err.Error())
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestTimeout:
		return "timeout"
	case http.StatusUnprocessableEntity:
		return "scraping_failed"
	}
	return "internal_error"
}

// bindAndValidate decodes the body into req and runs struct validation
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return utils.NewBadRequestError("Invalid request format")
	}
	if err := validate.Struct(req); err != nil {
		return utils.NewValidationError(err.Error())
	}
	return nil
}
