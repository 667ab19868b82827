package handlers

import (
	"context"
	"net/http"
	"time"

	"letraz-harvester/internal/logging"
	"letraz-harvester/pkg/models"

	"github.com/labstack/echo/v4"
)

// Version is reported by the health endpoints
var Version = "1.0.0"

var startTime = time.Now()

// Check is a named readiness probe
type Check func(ctx context.Context) error

// HealthHandler handles health check requests
func HealthHandler(c echo.Context) error {
	logging.GetGlobalLogger().Debug("Health check requested", map[string]interface{}{"request_id": requestID(c)})

	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
		Checks: map[string]string{
			"api": "ok",
		},
	})
}

// ReadinessHandler runs every check and reports 503 when any of them fails
func ReadinessHandler(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := map[string]string{"api": "ok"}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
			logging.GetGlobalLogger().Warn("Readiness check failed", map[string]interface{}{
				"request_id": requestID(c),
				"checks":     results,
			})
		}

		return c.JSON(status, models.HealthResponse{
			Status:    state,
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(startTime),
			Checks:    results,
		})
	}
}

// LivenessHandler handles liveness probe requests
func LivenessHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   Version,
		Uptime:    time.Since(startTime),
	})
}
