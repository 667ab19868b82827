package middleware

import (
	"net/http"
	"time"

	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"

	"github.com/labstack/echo/v4"
)

// MaxBodyBytes caps the size of request bodies
const MaxBodyBytes = 1024 * 1024

// RequestValidation middleware tags requests with an id and rejects oversized bodies
func RequestValidation() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = utils.GenerateRequestID()
			}
			c.Set("request_id", requestID)
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			switch c.Request().Method {
			case http.MethodPost, http.MethodPatch, http.MethodPut:
				if c.Request().ContentLength > MaxBodyBytes {
					return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
						Error:     "request_too_large",
						Message:   "Request body too large",
						RequestID: requestID,
						Timestamp: time.Now(),
					})
				}
			}

			return next(c)
		}
	}
}
