package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"letraz-harvester/internal/background"
	"letraz-harvester/internal/scraper/ratelimit"
	"letraz-harvester/pkg/models"
)

// HostStatsSource exposes per-host pacing and breaker state
type HostStatsSource interface {
	Stats() []ratelimit.HostStats
}

// HostStatsHandler returns rate limiting statistics for every host seen
func HostStatsHandler(hosts HostStatsSource) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats := []ratelimit.HostStats{}
		if hosts != nil {
			stats = append(stats, hosts.Stats()...)
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"success":    true,
			"hosts":      stats,
			"request_id": requestID(c),
			"timestamp":  time.Now(),
		})
	}
}

// ListRunsHandler lists known background runs, newest first
func ListRunsHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		runs := []*models.AsyncTaskStatusResponse{}
		if taskManager != nil {
			results, err := taskManager.ListTasks(c.Request().Context())
			if err != nil {
				return respondError(c, err)
			}
			for _, r := range results {
				runs = append(runs, r.ToResponse())
			}
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"runs":      runs,
			"healthy":   taskManager != nil && taskManager.IsHealthy(),
			"timestamp": time.Now(),
		})
	}
}
