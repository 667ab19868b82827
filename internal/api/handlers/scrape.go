package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"letraz-harvester/internal/background"
	"letraz-harvester/internal/config"
	"letraz-harvester/internal/coordinator"
	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// RunService is the part of the coordinator the HTTP layer drives
type RunService interface {
	Validate(cfg coordinator.RunConfig) error
	Run(ctx context.Context, cfg coordinator.RunConfig) (*models.RunSummary, error)
	CheckLogin(ctx context.Context, site string) (models.LoginStatus, error)
	CheckAllLogins(ctx context.Context) (map[string]models.LoginStatus, error)
}

// ScrapeHandler starts a scrape run. Without "async" the request blocks until
// the run finishes; with it the run is queued and a process id is returned.
func ScrapeHandler(cfg *config.Config, runs RunService, jobs store.Store, taskManager background.TaskManager) echo.HandlerFunc {
	logger := logging.ForComponent(logging.GetGlobalLogger(), "scrape_handler")

	return func(c echo.Context) error {
		startTime := time.Now()
		reqID := requestID(c)

		var req models.ScrapeRequest
		if err := bindAndValidate(c, &req); err != nil {
			logger.Warn("Rejected scrape request", map[string]interface{}{
				"request_id": reqID,
				"error":      err.Error(),
			})
			return respondError(c, err)
		}

		ctx := c.Request().Context()
		settings, err := jobs.GetSettings(ctx, store.DefaultSettings(cfg))
		if err != nil {
			return respondError(c, fmt.Errorf("failed to load settings: %w", err))
		}

		runCfg := coordinator.ResolveRunConfig(req, settings)
		if err := runs.Validate(runCfg); err != nil {
			return respondError(c, err)
		}

		if req.Async {
			if taskManager == nil {
				return errorJSON(c, http.StatusServiceUnavailable, "unavailable", "Background runs are disabled")
			}

			processID := utils.GenerateRequestID()
			if err := taskManager.SubmitRunTask(ctx, processID, runCfg); err != nil {
				logger.Error("Failed to submit background run", map[string]interface{}{
					"request_id": reqID,
					"process_id": processID,
					"error":      err.Error(),
				})
				return respondError(c, err)
			}

			logger.Info("Scrape run queued", map[string]interface{}{
				"request_id": reqID,
				"process_id": processID,
				"sources":    runCfg.Sources,
			})
			return c.JSON(http.StatusAccepted, models.CreateAsyncScrapeResponse(processID))
		}

		runCfg.RunID = reqID
		summary, err := runs.Run(ctx, runCfg)
		if err != nil {
			logger.Error("Scrape run failed", map[string]interface{}{
				"request_id":      reqID,
				"processing_time": time.Since(startTime).String(),
				"error":           err.Error(),
			})
			if errors.Is(err, context.DeadlineExceeded) {
				return respondError(c, utils.NewTimeoutError("Scrape run timed out"))
			}
			return respondError(c, err)
		}

		logger.Info("Scrape run completed", map[string]interface{}{
			"request_id":      reqID,
			"total_added":     summary.TotalJobsAdded,
			"login_required":  summary.LoginRequired,
			"processing_time": time.Since(startTime).String(),
		})

		return c.JSON(http.StatusOK, models.NewScrapeResponse(summary, reqID))
	}
}

// ScrapeStatusHandler reports the state of a background run
func ScrapeStatusHandler(taskManager background.TaskManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		processID := c.Param("processId")
		if processID == "" {
			return respondError(c, utils.NewBadRequestError("processId is required"))
		}
		if taskManager == nil {
			return respondError(c, background.ErrTaskNotFound)
		}

		result, err := taskManager.GetTaskResult(c.Request().Context(), processID)
		if err != nil {
			return respondError(c, err)
		}

		return c.JSON(http.StatusOK, result.ToResponse())
	}
}

// AuthStatusHandler probes login state for one site (?site=) or all of them
func AuthStatusHandler(runs RunService) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		if site := c.QueryParam("site"); site != "" {
			status, err := runs.CheckLogin(ctx, site)
			if err != nil {
				return respondError(c, err)
			}
			return c.JSON(http.StatusOK, models.AuthStatusResponse{
				Sites:     map[string]models.LoginStatus{site: status},
				Timestamp: time.Now(),
			})
		}

		statuses, err := runs.CheckAllLogins(ctx)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, models.AuthStatusResponse{
			Sites:     statuses,
			Timestamp: time.Now(),
		})
	}
}
