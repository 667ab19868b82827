package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
	"letraz-harvester/pkg/utils"
)

// ListJobsHandler returns a filtered page of stored jobs together with store stats
func ListJobsHandler(jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		filter := models.JobFilter{
			Status:  c.QueryParam("status"),
			Source:  c.QueryParam("source"),
			Search:  strings.TrimSpace(c.QueryParam("search")),
			Page:    queryInt(c, "page"),
			PerPage: queryInt(c, "perPage"),
			Sort:    c.QueryParam("sort"),
		}
		if filter.Status != "" && filter.Status != "all" && !models.JobStatus(filter.Status).IsValid() {
			return respondError(c, utils.NewValidationError("unknown status: "+filter.Status))
		}

		ctx := c.Request().Context()
		records, total, err := jobs.List(ctx, filter)
		if err != nil {
			return respondError(c, err)
		}
		stats, err := jobs.Stats(ctx)
		if err != nil {
			return respondError(c, err)
		}

		page, perPage := store.NormalizePage(filter.Page, filter.PerPage)
		totalPages := 0
		if total > 0 {
			totalPages = (total + perPage - 1) / perPage
		}
		if records == nil {
			records = []models.JobRecord{}
		}

		return c.JSON(http.StatusOK, models.JobListResponse{
			Jobs: records,
			Pagination: models.Pagination{
				Page:       page,
				PerPage:    perPage,
				Total:      total,
				TotalPages: totalPages,
			},
			Stats: *stats,
		})
	}
}

// CreateJobHandler stores a manually added job
func CreateJobHandler(jobs store.Store) echo.HandlerFunc {
	logger := logging.ForComponent(logging.GetGlobalLogger(), "jobs_handler")

	return func(c echo.Context) error {
		var req models.CreateJobRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err)
		}

		source := req.Source
		if source == "" {
			source = "manual"
		}
		record := models.NewJobRecord(models.Listing{
			Source:      source,
			URL:         req.URL,
			Title:       utils.CleanText(req.Title),
			Company:     utils.CleanText(req.Company),
			Location:    utils.CleanText(req.Location),
			Salary:      utils.CleanText(req.Salary),
			Description: req.Description,
		})

		ctx := c.Request().Context()
		id, err := jobs.Insert(ctx, record)
		if err != nil {
			return respondError(c, err)
		}

		created, err := jobs.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}

		logger.Info("Job added manually", map[string]interface{}{
			"request_id": requestID(c),
			"job_id":     id,
			"url":        created.URL,
		})

		return c.JSON(http.StatusCreated, created)
	}
}

// GetJobHandler returns one stored job
func GetJobHandler(jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := jobID(c)
		if err != nil {
			return respondError(c, err)
		}

		record, err := jobs.GetByID(c.Request().Context(), id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, record)
	}
}

// UpdateJobHandler applies an operator change (status, score, notes, contact fields)
func UpdateJobHandler(jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := jobID(c)
		if err != nil {
			return respondError(c, err)
		}

		var req models.UpdateJobRequest
		if err := bindAndValidate(c, &req); err != nil {
			return respondError(c, err)
		}

		ctx := c.Request().Context()
		if err := jobs.Update(ctx, id, req.ToUpdate()); err != nil {
			return respondError(c, err)
		}

		record, err := jobs.GetByID(ctx, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, record)
	}
}

// DeleteJobHandler removes a stored job
func DeleteJobHandler(jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := jobID(c)
		if err != nil {
			return respondError(c, err)
		}

		if err := jobs.Delete(c.Request().Context(), id); err != nil {
			return respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// JobStatsHandler returns counts by status and by source
func JobStatsHandler(jobs store.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := jobs.Stats(c.Request().Context())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, stats)
	}
}

func jobID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, utils.NewBadRequestError("Invalid job id")
	}
	return id, nil
}

func queryInt(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
