package routes

import (
	"net/http"

	"letraz-harvester/internal/api/handlers"
	"letraz-harvester/internal/api/middleware"
	"letraz-harvester/internal/background"
	"letraz-harvester/internal/config"
	"letraz-harvester/internal/store"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// Dependencies are the collaborators the HTTP layer needs
type Dependencies struct {
	Config  *config.Config
	Runs    handlers.RunService
	Store   store.Store
	Tasks   background.TaskManager
	Hosts   handlers.HostStatsSource
	Sources []string
	Checks  map[string]handlers.Check
}

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	cfg := deps.Config

	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.SelectiveTimeoutConfig(cfg.Server.ReadTimeout, cfg.Server.ScrapeTimeout))

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(deps.Checks))
		health.GET("/live", handlers.LivenessHandler)
	}

	// API v1 routes
	v1 := e.Group("/api/v1")
	{
		v1.POST("/scrape", handlers.ScrapeHandler(cfg, deps.Runs, deps.Store, deps.Tasks))
		v1.GET("/scrape", handlers.ListRunsHandler(deps.Tasks))
		v1.GET("/scrape/:processId", handlers.ScrapeStatusHandler(deps.Tasks))

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", handlers.ListJobsHandler(deps.Store))
			jobs.POST("", handlers.CreateJobHandler(deps.Store))
			jobs.GET("/stats", handlers.JobStatsHandler(deps.Store))
			jobs.GET("/:id", handlers.GetJobHandler(deps.Store))
			jobs.PATCH("/:id", handlers.UpdateJobHandler(deps.Store))
			jobs.DELETE("/:id", handlers.DeleteJobHandler(deps.Store))
		}

		v1.GET("/settings", handlers.GetSettingsHandler(cfg, deps.Store))
		v1.POST("/settings", handlers.SaveSettingsHandler(cfg, deps.Store, deps.Sources))

		v1.GET("/auth/status", handlers.AuthStatusHandler(deps.Runs))
		v1.GET("/hosts/stats", handlers.HostStatsHandler(deps.Hosts))
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"service": "Letraz Harvester",
			"version": handlers.Version,
			"status":  "running",
			"sources": deps.Sources,
		})
	})
}
